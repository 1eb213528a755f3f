package store

import (
	"context"
	"sync"

	"product-catalog/internal/catalog"
)

const DefaultPageSize = 10

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type PageSource interface {
	ListProducts(ctx context.Context, filter catalog.Filter, limit, skip int) (catalog.Page, error)
}

type ListState struct {
	Products []catalog.Product `json:"products"`
	Status   Status            `json:"status" example:"succeeded"`
	HasMore  bool              `json:"has_more"`
	Skip     int               `json:"skip"`
	Filter   catalog.Filter    `json:"filter"`
	Error    string            `json:"error,omitempty"`
}

// Empty reports a successful fetch that matched nothing.
func (s ListState) Empty() bool {
	return s.Status == StatusSucceeded && len(s.Products) == 0
}

// Request tags one page fetch with the filter context and cursor it was issued under.
type Request struct {
	Filter     catalog.Filter
	Skip       int
	generation uint64
}

// ListStore holds the paginated product sequence of one browse session.
//
// Every fetch is tagged at issue time. A response is applied only if its tag
// still matches the store: same generation, same filter, and for follow-up
// pages a skip equal to the current cursor. Anything else is discarded with
// catalog.ErrStaleResponse, so reordered or superseded responses never reach
// the sequence.
type ListStore struct {
	source   PageSource
	pageSize int

	mu         sync.Mutex
	products   []catalog.Product
	status     Status
	outcome    Status
	hasMore    bool
	cursor     int
	filter     catalog.Filter
	lastErr    error
	generation uint64
	pending    int
}

func NewListStore(source PageSource, pageSize int) *ListStore {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &ListStore{
		source:   source,
		pageSize: pageSize,
		status:   StatusIdle,
		outcome:  StatusIdle,
		hasMore:  true,
	}
}

func (s *ListStore) PageSize() int {
	return s.pageSize
}

// FetchPage loads one page for filter starting at skip and merges it.
// On failure the current sequence is kept and the status becomes failed.
func (s *ListStore) FetchPage(ctx context.Context, filter catalog.Filter, skip int) (ListState, error) {
	return s.fetch(ctx, s.Begin(filter, skip))
}

// FetchNext loads the page following the current cursor in the current filter context.
func (s *ListStore) FetchNext(ctx context.Context) (ListState, error) {
	return s.fetch(ctx, s.BeginNext())
}

func (s *ListStore) fetch(ctx context.Context, req Request) (ListState, error) {
	page, err := s.source.ListProducts(ctx, req.Filter, s.pageSize, req.Skip)
	if err != nil {
		if staleErr := s.Fail(req, err); staleErr != nil {
			return s.State(), staleErr
		}
		return s.State(), err
	}
	if err := s.Apply(req, page); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Begin registers a fetch and returns its tag. A filter different from the
// current one resets the list first and forces skip to zero. A skip of zero
// opens a new generation, which makes every older in-flight request stale.
func (s *ListStore) Begin(filter catalog.Filter, skip int) Request {
	filter = filter.Normalize()
	if skip < 0 {
		skip = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if filter != s.filter {
		s.resetLocked()
		s.filter = filter
		skip = 0
	}
	return s.registerLocked(filter, skip)
}

// BeginNext registers a fetch of the page after the cursor in the current
// filter context. It never resets the list: if the filter changes while the
// fetch is in flight, its response is stale.
func (s *ListStore) BeginNext() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerLocked(s.filter, s.cursor)
}

func (s *ListStore) registerLocked(filter catalog.Filter, skip int) Request {
	if skip == 0 {
		s.generation++
		s.pending = 0
	}
	s.pending++
	s.status = StatusLoading

	return Request{Filter: filter, Skip: skip, generation: s.generation}
}

// Apply merges page into the sequence if req is still current.
func (s *ListStore) Apply(req Request, page catalog.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completeLocked(req) {
		return catalog.ErrStaleResponse
	}

	incoming := make([]catalog.Product, 0, len(page.Products))
	for _, p := range page.Products {
		incoming = append(incoming, p.Clone())
	}
	if req.Skip == 0 {
		s.products = incoming
	} else {
		s.products = append(s.products, incoming...)
	}

	s.cursor = req.Skip + len(page.Products)
	s.hasMore = s.cursor < page.Total && len(page.Products) >= s.pageSize
	s.lastErr = nil
	s.outcome = StatusSucceeded
	s.settleLocked()
	return nil
}

// Fail records a failed fetch. The sequence is left untouched.
func (s *ListStore) Fail(req Request, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completeLocked(req) {
		return catalog.ErrStaleResponse
	}

	s.lastErr = err
	s.outcome = StatusFailed
	s.settleLocked()
	return nil
}

// completeLocked accounts for a finished request and reports whether it is stale.
func (s *ListStore) completeLocked(req Request) bool {
	if req.generation != s.generation {
		return true
	}
	if s.pending > 0 {
		s.pending--
	}
	stale := req.Filter != s.filter || (req.Skip > 0 && req.Skip != s.cursor)
	if stale {
		s.settleLocked()
	}
	return stale
}

func (s *ListStore) settleLocked() {
	if s.pending > 0 {
		s.status = StatusLoading
		return
	}
	s.status = s.outcome
}

// Reset empties the sequence and rewinds the cursor. In-flight fetches become stale.
func (s *ListStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *ListStore) resetLocked() {
	s.products = nil
	s.cursor = 0
	s.hasMore = true
	s.lastErr = nil
	s.status = StatusIdle
	s.outcome = StatusIdle
	s.pending = 0
	s.generation++
}

// Remove drops the product with id from the sequence. Absent ids are a no-op.
func (s *ListStore) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i:i], s.products[i+1:]...)
			return true
		}
	}
	return false
}

// Replace swaps the local copy of product for the given value.
func (s *ListStore) Replace(product catalog.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.products {
		if p.ID == product.ID {
			s.products[i] = product.Clone()
			return true
		}
	}
	return false
}

// Find returns a snapshot of the product with id if it is in the sequence.
func (s *ListStore) Find(id int64) (catalog.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return catalog.Product{}, false
}

func (s *ListStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusLoading
}

func (s *ListStore) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *ListStore) State() ListState {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p.Clone())
	}
	state := ListState{
		Products: products,
		Status:   s.status,
		HasMore:  s.hasMore,
		Skip:     s.cursor,
		Filter:   s.filter,
	}
	if s.lastErr != nil {
		state.Error = s.lastErr.Error()
	}
	return state
}
