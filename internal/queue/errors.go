package queue

import "errors"

var (
	// ErrNotRecord is returned when a root add or an update payload is not a
	// record (map[string]any).
	ErrNotRecord = errors.New("payload is not a record")

	// ErrBadPayload is returned when a sort action carries no SortPayload.
	ErrBadPayload = errors.New("invalid action payload")

	// ErrUnknownAction is returned when middleware rewrites an action into a
	// type the store does not understand.
	ErrUnknownAction = errors.New("unknown action type")
)
