// Package fixtures builds, ships, and installs the investigation datasets a
// case is played against. The seed pipeline encodes generated records as
// parquet artifacts in the object store; the loader materializes them into
// the investigations database.
package fixtures

// Tables lists the investigation tables in dependency order: parents before
// children, so inserts can run front to back and deletes back to front.
func Tables() []string {
	return []string{"person", "cases", "suspect", "alibi", "statement", "evidence"}
}

// ddl holds portable CREATE TABLE statements accepted by both backends.
// Foreign keys are declared so catalog introspection can see them.
var ddl = map[string]string{
	"person": `
CREATE TABLE IF NOT EXISTS person (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    age BIGINT NOT NULL,
    occupation TEXT NOT NULL,
    address TEXT NOT NULL
)`,
	"cases": `
CREATE TABLE IF NOT EXISTS cases (
    id BIGINT PRIMARY KEY,
    title TEXT NOT NULL,
    location TEXT NOT NULL,
    opened_on DATE NOT NULL,
    status TEXT NOT NULL
)`,
	"suspect": `
CREATE TABLE IF NOT EXISTS suspect (
    id BIGINT PRIMARY KEY,
    case_id BIGINT NOT NULL REFERENCES cases (id),
    person_id BIGINT NOT NULL REFERENCES person (id),
    motive TEXT NOT NULL
)`,
	"alibi": `
CREATE TABLE IF NOT EXISTS alibi (
    id BIGINT PRIMARY KEY,
    case_id BIGINT NOT NULL REFERENCES cases (id),
    person_id BIGINT NOT NULL REFERENCES person (id),
    claim TEXT NOT NULL,
    verified BOOLEAN NOT NULL
)`,
	"statement": `
CREATE TABLE IF NOT EXISTS statement (
    id BIGINT PRIMARY KEY,
    case_id BIGINT NOT NULL REFERENCES cases (id),
    person_id BIGINT NOT NULL REFERENCES person (id),
    given_on DATE NOT NULL,
    text TEXT NOT NULL
)`,
	"evidence": `
CREATE TABLE IF NOT EXISTS evidence (
    id BIGINT PRIMARY KEY,
    case_id BIGINT NOT NULL REFERENCES cases (id),
    item TEXT NOT NULL,
    found_at TEXT NOT NULL,
    belongs_to BIGINT REFERENCES person (id)
)`,
}

var columnHelp = map[string]string{
	"person.id":           "Unique person identifier.",
	"person.name":         "Full legal name.",
	"person.age":          "Age in years at the time the case opened.",
	"person.occupation":   "Self-reported occupation.",
	"person.address":      "Last known address.",
	"cases.id":            "Unique case identifier.",
	"cases.title":         "Short case title as filed.",
	"cases.location":      "Where the incident took place.",
	"cases.opened_on":     "Date the case file was opened.",
	"cases.status":        "Current filing status: open or closed.",
	"suspect.case_id":     "Case this suspicion belongs to.",
	"suspect.person_id":   "Person under suspicion.",
	"suspect.motive":      "Suspected motive noted by investigators.",
	"alibi.case_id":       "Case the alibi was given for.",
	"alibi.person_id":     "Person claiming the alibi.",
	"alibi.claim":         "Where the person says they were.",
	"alibi.verified":      "Whether investigators could confirm the claim.",
	"statement.case_id":   "Case the statement was taken for.",
	"statement.person_id": "Person who gave the statement.",
	"statement.given_on":  "Date the statement was recorded.",
	"statement.text":      "Verbatim statement text.",
	"evidence.case_id":    "Case the item was logged under.",
	"evidence.item":       "Description of the recovered item.",
	"evidence.found_at":   "Where the item was recovered.",
	"evidence.belongs_to": "Owner of the item, when established.",
}

// ColumnHelp returns learner-facing help text for a column, or "".
func ColumnHelp(table, column string) string {
	return columnHelp[table+"."+column]
}
