package family

import "fmt"

// Relation labels a parent edge.
type Relation int

const (
	// Mother labels the edge from a child to its mother.
	Mother Relation = iota
	// Father labels the edge from a child to its father.
	Father
)

// String returns "mother" or "father".
func (r Relation) String() string {
	switch r {
	case Mother:
		return "mother"
	case Father:
		return "father"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// Person is a single genealogical record. Identity fields are never modified
// once the record has been loaded into a [Graph].
//
// Mother and Father are nil when the record names no parent. A non-nil id
// that does not match any loaded person is kept as-is but produces no edge.
type Person struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Birth     string `json:"birth"`
	Death     string `json:"death"`
	Mother    *int   `json:"mother,omitempty"`
	Father    *int   `json:"father,omitempty"`
}

// Name returns the first and last name separated by a space.
func (p Person) Name() string {
	return p.FirstName + " " + p.LastName
}

// Label returns the two-line display label used by renderers:
// the full name followed by "birth - death".
func (p Person) Label() string {
	return fmt.Sprintf("%s\n%s - %s", p.Name(), p.Birth, p.Death)
}

// ParentID returns the referenced parent id for rel, if any.
func (p Person) ParentID(rel Relation) (int, bool) {
	var ref *int
	switch rel {
	case Mother:
		ref = p.Mother
	case Father:
		ref = p.Father
	}
	if ref == nil {
		return 0, false
	}
	return *ref, true
}

// Ref returns a pointer to id, for filling Person.Mother and Person.Father.
func Ref(id int) *int { return &id }
