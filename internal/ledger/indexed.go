package ledger

// Indexed is implemented by records that carry their own offset into the
// IndexedList holding them. The stored offset is what makes swap-removal
// safe for external references: only the removed element is invalidated.
type Indexed interface {
	listPos() int
	setListPos(int)
}

// IndexedList is an ordered collection with O(1) append and O(1) removal.
// Removal overwrites the vacated slot with the last element and rewrites
// that element's stored offset.
type IndexedList[T Indexed] struct {
	items []T
}

// Append adds v at the end and records its offset on the record itself.
func (l *IndexedList[T]) Append(v T) int {
	pos := len(l.items)
	l.items = append(l.items, v)
	v.setListPos(pos)
	return pos
}

// Remove deletes the element at pos. pos must be a currently valid index;
// the caller maintains that invariant, the list does not re-validate it.
func (l *IndexedList[T]) Remove(pos int) {
	last := len(l.items) - 1
	if pos != last {
		moved := l.items[last]
		l.items[pos] = moved
		moved.setListPos(pos)
	}
	var zero T
	l.items[last] = zero
	l.items = l.items[:last]
}

func (l *IndexedList[T]) Len() int {
	return len(l.items)
}

func (l *IndexedList[T]) At(pos int) T {
	return l.items[pos]
}

// Items exposes the backing slice in list order. Callers must not grow or
// shrink it.
func (l *IndexedList[T]) Items() []T {
	return l.items
}
