package buffer

// Locator maps a buffered record id to the store path its updates and
// removals target. ok=false means the record has no place in the store.
type Locator func(id string) (p string, ok bool)

// ByPosition uses the id itself as the path, so id "3" addresses the
// fourth top-level record. This matches stores whose ids are their
// positions.
func ByPosition(id string) (string, bool) {
	return id, true
}

// Indexer finds the path of a top-level record by identifier.
// Implemented by queue.Store.
type Indexer interface {
	IndexOf(id string) (string, bool)
}

// ByIdentifier looks the record up by identifier in the store on every call,
// so paths stay correct after sorts and removals.
func ByIdentifier(idx Indexer) Locator {
	return idx.IndexOf
}
