package cases

// Definition is the authorable form of a case: everything needed to install
// it into the app database and to build its dataset.
type Definition struct {
	ID               string
	Title            string
	ShortDescription string
	Description      string
	RequiredXP       int
	RewardXP         int
	AllowedTables    []string
	Answer           string
}

var registry = []Definition{
	{
		ID:               "vanished-witness",
		Title:            "The Vanished Witness",
		ShortDescription: "A key witness disappeared the night before testifying.",
		Description: "Marla Voss was due to testify in the Harbor Street robbery trial. " +
			"The evening before her court date she left her apartment and was never seen again. " +
			"Comb through the people connected to the case, their statements, and their alibis. " +
			"One alibi does not hold up. Name the person who made the witness disappear.",
		RequiredXP:    0,
		RewardXP:      100,
		AllowedTables: []string{"person", "cases", "suspect", "alibi", "statement"},
		Answer:        "Martin Cole",
	},
	{
		ID:               "final-meeting",
		Title:            "The Final Meeting",
		ShortDescription: "A venture partner was found dead after a late office meeting.",
		Description: "Gregor Hale stayed late to meet one last visitor and never left the building alive. " +
			"The badge log burned with the server room, but statements, alibis, and the recovered " +
			"evidence tell their own story. Cross-reference who was where, who lied about it, " +
			"and whose belongings turned up at the scene. Name the killer.",
		RequiredXP:    100,
		RewardXP:      150,
		AllowedTables: []string{"person", "cases", "suspect", "alibi", "statement", "evidence"},
		Answer:        "Helen Briggs",
	},
}

// Definitions returns the built-in cases in install order.
func Definitions() []Definition {
	defs := make([]Definition, len(registry))
	copy(defs, registry)
	return defs
}

// Lookup returns the built-in definition for the given case id.
func Lookup(caseID string) (Definition, bool) {
	for _, def := range registry {
		if def.ID == caseID {
			return def, true
		}
	}
	return Definition{}, false
}
