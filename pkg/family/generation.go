package family

import (
	"encoding/json"
	"strconv"
)

// Generation is the per-node generation state. A Generation is either
// unassigned or holds an integer distance from the anchor; the zero value is
// unassigned, so every freshly built node starts out unknown.
type Generation struct {
	value    int
	assigned bool
}

// Unassigned returns the unknown generation state.
func Unassigned() Generation { return Generation{} }

// Assigned returns a generation holding v.
func Assigned(v int) Generation { return Generation{value: v, assigned: true} }

// Value returns the generation number and whether it is assigned.
func (g Generation) Value() (int, bool) { return g.value, g.assigned }

// IsAssigned reports whether the generation is known.
func (g Generation) IsAssigned() bool { return g.assigned }

// String returns the number, or "?" when unassigned.
func (g Generation) String() string {
	if !g.assigned {
		return "?"
	}
	return strconv.Itoa(g.value)
}

// MarshalJSON encodes an assigned generation as a number and an unassigned
// one as null.
func (g Generation) MarshalJSON() ([]byte, error) {
	if !g.assigned {
		return []byte("null"), nil
	}
	return json.Marshal(g.value)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (g *Generation) UnmarshalJSON(data []byte) error {
	var v *int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*g = Unassigned()
		return nil
	}
	*g = Assigned(*v)
	return nil
}
