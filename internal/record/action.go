package record

// ActionType distinguishes the mutations a store understands.
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionRemove ActionType = "remove"
	ActionUpdate ActionType = "update"
	ActionSort   ActionType = "sort"
	ActionClear  ActionType = "clear"
)

// ValidActionTypes lists every action type in declaration order.
var ValidActionTypes = []ActionType{ActionAdd, ActionRemove, ActionUpdate, ActionSort, ActionClear}

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	for _, v := range ValidActionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Action is the unit that flows through middleware and mutates a store.
//
// Payload depends on Type:
//   - add: the item to append (a Record at the root, anything in nested sequences)
//   - update: the Record of changes to shallow-merge
//   - sort: a SortPayload
//   - remove, clear: unused
type Action struct {
	Type    ActionType
	Payload any
	Path    string
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortOptions controls a sort action.
type SortOptions struct {
	// Path addresses the sequence to sort. Empty sorts the root sequence.
	Path string

	// Direction defaults to Asc. Ignored when Compare is set.
	Direction Direction

	// Compare overrides the field comparator when non-nil.
	Compare func(a, b any) int

	// Shallow disables recursion into sequence-valued fields of sorted elements.
	Shallow bool

	// MaxDepth bounds recursion when not Shallow. Zero or negative is unbounded.
	MaxDepth int
}

// SortPayload is the payload carried by a sort action.
type SortPayload struct {
	Key     string
	Options SortOptions
}
