package merge

// KeyIterable pairs the identity of an upstream with the rows that upstream
// produced in one page. Immutable once constructed; ownership of the row
// slice passes to whichever PagingIterator it is merged into.
type KeyIterable[K comparable, T any] struct {
	key  K
	rows []T
}

func NewKeyIterable[K comparable, T any](key K, rows []T) KeyIterable[K, T] {
	return KeyIterable[K, T]{key: key, rows: rows}
}

// Key names the upstream this page came from.
func (ki KeyIterable[K, T]) Key() K {
	return ki.key
}

// Rows returns the rows of the page.
func (ki KeyIterable[K, T]) Rows() []T {
	return ki.rows
}

// Len returns the number of rows in the page.
func (ki KeyIterable[K, T]) Len() int {
	return len(ki.rows)
}
