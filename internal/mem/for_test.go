package mem

// PagedDump provides data for testing.
type PagedDump[T any] struct {
	Bases []uint
	Sizes []uint
	Pages [][]T
}

// Dump memory data for testing.
func (m *Paged[T]) Dump() (d PagedDump[T]) {
	d.Bases = m.bases
	d.Sizes = m.sizes
	d.Pages = m.pages
	return d
}
