package entitygraph

// Canonical entity classes.
const (
	GroupPerson       = "person"
	GroupLocation     = "location"
	GroupOrganization = "organization"
	GroupMixed        = "mixed"
)

var groupTable = map[string]string{
	"PER":          GroupPerson,
	"LOC":          GroupLocation,
	"GPE":          GroupLocation,
	"ORG":          GroupOrganization,
	"NOR":          GroupOrganization,
	"ORGANIZATION": GroupOrganization,
}

// Classify maps an upper-cased annotator tag to its canonical class.
// Tags outside the table (dates, cardinals, misc) are rejected.
func Classify(tag string) (string, bool) {
	group, ok := groupTable[tag]
	return group, ok
}
