package store

import (
	"sync"

	"product-catalog/internal/catalog"
)

// Favorites is an insertion-ordered set of product snapshots keyed by id.
// It is independent of any list pagination.
type Favorites struct {
	mu    sync.RWMutex
	items []catalog.Product
}

func NewFavorites() *Favorites {
	return &Favorites{}
}

// Toggle removes the product if a snapshot with the same id exists and
// appends a snapshot of it otherwise. It reports whether the product was added.
func (f *Favorites) Toggle(product catalog.Product) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i := f.indexLocked(product.ID); i >= 0 {
		f.items = append(f.items[:i:i], f.items[i+1:]...)
		return false
	}
	f.items = append(f.items, product.Clone())
	return true
}

func (f *Favorites) IsFavorite(id int64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.indexLocked(id) >= 0
}

func (f *Favorites) Get(id int64) (catalog.Product, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if i := f.indexLocked(id); i >= 0 {
		return f.items[i].Clone(), true
	}
	return catalog.Product{}, false
}

// Remove drops id if present.
func (f *Favorites) Remove(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexLocked(id)
	if i < 0 {
		return false
	}
	f.items = append(f.items[:i:i], f.items[i+1:]...)
	return true
}

// Load replaces the set with products, keeping the first snapshot of each id.
func (f *Favorites) Load(products []catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = f.items[:0:0]
	for _, p := range products {
		if f.indexLocked(p.ID) >= 0 {
			continue
		}
		f.items = append(f.items, p.Clone())
	}
}

func (f *Favorites) List() []catalog.Product {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]catalog.Product, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, p.Clone())
	}
	return out
}

func (f *Favorites) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

func (f *Favorites) indexLocked(id int64) int {
	for i, p := range f.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}
