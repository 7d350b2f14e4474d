package fixtures

import (
	"fmt"
	"math/rand"
)

// Generate builds the deterministic dataset for a built-in case. Identifier
// ranges are disjoint per case because every dataset lands in the same
// shared investigations store.
func Generate(caseID string) (Dataset, error) {
	switch caseID {
	case "vanished-witness":
		return buildVanishedWitness(), nil
	case "final-meeting":
		return buildFinalMeeting(), nil
	default:
		return Dataset{}, fmt.Errorf("no fixture builder for case %q", caseID)
	}
}

// Culprit names must match the expected case answers exactly.
const (
	vanishedWitnessCulprit = "Martin Cole"
	finalMeetingCulprit    = "Helen Briggs"
)

func buildVanishedWitness() Dataset {
	rng := rand.New(rand.NewSource(1001))
	ds := Dataset{CaseID: "vanished-witness"}

	people := []struct {
		name       string
		occupation string
	}{
		{"Marla Voss", "bookkeeper"},
		{vanishedWitnessCulprit, "warehouse foreman"},
		{"Dora Finch", "night nurse"},
		{"Ray Okafor", "cab driver"},
		{"Stella Marsh", "bartender"},
		{"Victor Lund", "pawnbroker"},
	}
	for i, p := range people {
		ds.Persons = append(ds.Persons, PersonRecord{
			ID:         1000 + int64(i),
			Name:       p.name,
			Age:        25 + int64(rng.Intn(35)),
			Occupation: p.occupation,
			Address:    fmt.Sprintf("%d Harbor Street", 10+rng.Intn(90)),
		})
	}

	ds.Cases = append(ds.Cases, CaseRecord{
		ID:       1000,
		Title:    "Disappearance of Marla Voss",
		Location: "Harbor Street",
		OpenedOn: "1987-03-14",
		Status:   "open",
	})

	suspects := []struct {
		personID int64
		motive   string
	}{
		{1001, "named in the witness testimony"},
		{1004, "owed the witness money"},
		{1005, "fenced the stolen goods"},
	}
	for i, s := range suspects {
		ds.Suspects = append(ds.Suspects, SuspectRecord{
			ID:       1000 + int64(i),
			CaseID:   1000,
			PersonID: s.personID,
			Motive:   s.motive,
		})
	}

	alibis := []struct {
		personID int64
		claim    string
		verified bool
	}{
		{1001, "claims he was loading trucks at the warehouse all night", false},
		{1002, "on shift at St. Anne's hospital", true},
		{1003, "driving fares downtown, dispatch log confirms", true},
		{1004, "tending the bar until close", true},
		{1005, "at a card game across town", true},
	}
	for i, a := range alibis {
		ds.Alibis = append(ds.Alibis, AlibiRecord{
			ID:       1000 + int64(i),
			CaseID:   1000,
			PersonID: a.personID,
			Claim:    a.claim,
			Verified: a.verified,
		})
	}

	statements := []struct {
		personID int64
		text     string
	}{
		{1002, "Marla told me she was afraid of a man from the warehouse."},
		{1003, "I dropped her home at eleven, a man was waiting across the street."},
		{1004, "Cole left the bar early that night, said he had business."},
		{1005, "I heard Cole bragging the trial would never happen."},
	}
	for i, s := range statements {
		ds.Statements = append(ds.Statements, StatementRecord{
			ID:       1000 + int64(i),
			CaseID:   1000,
			PersonID: s.personID,
			GivenOn:  "1987-03-15",
			Text:     s.text,
		})
	}

	return ds
}

func buildFinalMeeting() Dataset {
	rng := rand.New(rand.NewSource(2001))
	ds := Dataset{CaseID: "final-meeting"}

	people := []struct {
		name       string
		occupation string
	}{
		{"Gregor Hale", "venture partner"},
		{finalMeetingCulprit, "chief accountant"},
		{"Tomas Reyes", "security guard"},
		{"Ivy Chen", "analyst"},
		{"Paul Whitaker", "co-founder"},
		{"Nadia Sorel", "cleaning contractor"},
	}
	for i, p := range people {
		ds.Persons = append(ds.Persons, PersonRecord{
			ID:         2000 + int64(i),
			Name:       p.name,
			Age:        28 + int64(rng.Intn(30)),
			Occupation: p.occupation,
			Address:    fmt.Sprintf("%d Calloway Avenue", 10+rng.Intn(90)),
		})
	}

	ds.Cases = append(ds.Cases, CaseRecord{
		ID:       2000,
		Title:    "Death of Gregor Hale",
		Location: "Calloway Tower, 14th floor",
		OpenedOn: "1994-11-02",
		Status:   "open",
	})

	suspects := []struct {
		personID int64
		motive   string
	}{
		{2001, "Hale had ordered an audit of the books"},
		{2004, "stood to gain full control of the firm"},
		{2003, "passed over for promotion twice"},
	}
	for i, s := range suspects {
		ds.Suspects = append(ds.Suspects, SuspectRecord{
			ID:       2000 + int64(i),
			CaseID:   2000,
			PersonID: s.personID,
			Motive:   s.motive,
		})
	}

	alibis := []struct {
		personID int64
		claim    string
		verified bool
	}{
		{2001, "says she left the office at six, no one saw her go", false},
		{2002, "front desk rounds, logged every hour", true},
		{2003, "dinner with clients, receipts on file", true},
		{2004, "on a call with the coast office until nine", true},
		{2005, "cleaning the 9th floor, seen by the guard", true},
	}
	for i, a := range alibis {
		ds.Alibis = append(ds.Alibis, AlibiRecord{
			ID:       2000 + int64(i),
			CaseID:   2000,
			PersonID: a.personID,
			Claim:    a.claim,
			Verified: a.verified,
		})
	}

	statements := []struct {
		personID int64
		text     string
	}{
		{2002, "Hale signed in a visitor at half past eight, a woman."},
		{2003, "The audit files were gone from Hale's desk next morning."},
		{2004, "Briggs asked me twice when the audit would start."},
		{2005, "I saw a light in the accounting office long after closing."},
	}
	for i, s := range statements {
		ds.Statements = append(ds.Statements, StatementRecord{
			ID:       2000 + int64(i),
			CaseID:   2000,
			PersonID: s.personID,
			GivenOn:  "1994-11-03",
			Text:     s.text,
		})
	}

	evidence := []struct {
		item      string
		foundAt   string
		belongsTo int64
	}{
		{"monogrammed fountain pen", "under the meeting table", 2001},
		{"shredded audit memo", "accounting office wastebin", 2001},
		{"whisky glass, two sets of prints", "Hale's desk", 2000},
		{"visitor badge, unregistered", "14th floor corridor", 2001},
	}
	for i, e := range evidence {
		ds.Evidence = append(ds.Evidence, EvidenceRecord{
			ID:        2000 + int64(i),
			CaseID:    2000,
			Item:      e.item,
			FoundAt:   e.foundAt,
			BelongsTo: e.belongsTo,
		})
	}

	return ds
}
