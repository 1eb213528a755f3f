package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/session"
	"product-catalog/internal/catalog/store"

	"github.com/google/uuid"
)

type mockRemote struct {
	mu       sync.Mutex
	listFn   func(ctx context.Context, filter catalog.Filter, limit, skip int) (catalog.Page, error)
	getFn    func(ctx context.Context, id int64) (catalog.Product, error)
	createFn func(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	updateFn func(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error)
	deleteFn func(ctx context.Context, id int64) error
	listed   []catalog.Filter
}

func (m *mockRemote) ListProducts(ctx context.Context, filter catalog.Filter, limit, skip int) (catalog.Page, error) {
	m.mu.Lock()
	m.listed = append(m.listed, filter)
	m.mu.Unlock()
	return m.listFn(ctx, filter, limit, skip)
}
func (m *mockRemote) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	return m.getFn(ctx, id)
}
func (m *mockRemote) Categories(_ context.Context) ([]string, error) {
	return []string{"beauty", "laptops"}, nil
}
func (m *mockRemote) CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error) {
	return m.createFn(ctx, in)
}
func (m *mockRemote) UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error) {
	return m.updateFn(ctx, id, in)
}
func (m *mockRemote) DeleteProduct(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRemote) listedFilters() []catalog.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Filter(nil), m.listed...)
}

type mockFavoritesRepo struct {
	mu      sync.Mutex
	saved   map[string][]catalog.Product
	removed []int64
	err     error
}

func (m *mockFavoritesRepo) SaveFavorite(_ context.Context, sessionID string, p catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved[sessionID] = append(m.saved[sessionID], p)
	return nil
}
func (m *mockFavoritesRepo) RemoveFavorite(_ context.Context, sessionID string, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	kept := m.saved[sessionID][:0]
	for _, p := range m.saved[sessionID] {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	m.saved[sessionID] = kept
	return nil
}
func (m *mockFavoritesRepo) RemoveProduct(_ context.Context, productID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, productID)
	return 1, m.err
}
func (m *mockFavoritesRepo) ListFavorites(_ context.Context, sessionID string) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Product(nil), m.saved[sessionID]...), m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []catalog.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event catalog.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func catalogOf(n int) []catalog.Product {
	out := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, catalog.Product{ID: int64(i), Title: fmt.Sprintf("Product %d", i), Category: "general"})
	}
	return out
}

func defaultRemote(products []catalog.Product) *mockRemote {
	return &mockRemote{
		listFn: func(_ context.Context, _ catalog.Filter, limit, skip int) (catalog.Page, error) {
			end := min(skip+limit, len(products))
			start := min(skip, end)
			return catalog.Page{Products: products[start:end], Total: len(products), Skip: skip, Limit: limit}, nil
		},
		getFn: func(_ context.Context, id int64) (catalog.Product, error) {
			for _, p := range products {
				if p.ID == id {
					return p, nil
				}
			}
			return catalog.Product{}, catalog.ErrNotFound
		},
		createFn: func(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
			return catalog.Product{ID: 195, Title: in.Title, Price: in.Price, Stock: in.Stock, Brand: in.Brand, Category: in.Category}, nil
		},
		updateFn: func(_ context.Context, id int64, in catalog.ProductInput) (catalog.Product, error) {
			return catalog.Product{ID: id, Title: in.Title, Price: in.Price}, nil
		},
		deleteFn: func(_ context.Context, _ int64) error { return nil },
	}
}

type fixture struct {
	svc      *Service
	remote   *mockRemote
	repo     *mockFavoritesRepo
	pub      *mockPublisher
	sessions *session.Registry
}

func newFixture(remote *mockRemote) *fixture {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	registry := session.NewRegistry(remote, 10, 20*time.Millisecond)
	repo := &mockFavoritesRepo{saved: map[string][]catalog.Product{}}
	pub := &mockPublisher{}
	return &fixture{
		svc:      New(remote, registry, repo, pub, logger, NewMetrics("test")),
		remote:   remote,
		repo:     repo,
		pub:      pub,
		sessions: registry,
	}
}

func validForm() catalog.ProductForm {
	return catalog.ProductForm{
		Title:       "Mouse",
		Description: "Wireless",
		Price:       "19.99",
		Stock:       "5",
		Brand:       "Logi",
		Category:    "accessories",
	}
}

func TestCreateProduct(t *testing.T) {
	errDown := fmt.Errorf("%w: connection refused", catalog.ErrNetwork)

	tests := []struct {
		name      string
		form      func() catalog.ProductForm
		remoteErr error
		wantErr   error
		wantEvent string
	}{
		{
			name:      "success coerces numbers",
			form:      validForm,
			wantEvent: catalog.EventProductCreated,
		},
		{
			name: "missing brand",
			form: func() catalog.ProductForm {
				f := validForm()
				f.Brand = "  "
				return f
			},
			wantErr: catalog.ErrInvalidProduct,
		},
		{
			name:      "remote failure is a creation error",
			form:      validForm,
			remoteErr: errDown,
			wantErr:   catalog.ErrCreateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := defaultRemote(nil)
			var calls int
			var got catalog.ProductInput
			remote.createFn = func(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
				calls++
				got = in
				if tt.remoteErr != nil {
					return catalog.Product{}, tt.remoteErr
				}
				return catalog.Product{ID: 195, Title: in.Title, Price: in.Price, Stock: in.Stock}, nil
			}
			f := newFixture(remote)

			product, err := f.svc.CreateProduct(context.Background(), tt.form())

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error wrapping %v, got %v", tt.wantErr, err)
				}
				if errors.Is(tt.wantErr, catalog.ErrInvalidProduct) && calls != 0 {
					t.Fatalf("invalid input must not reach the remote service")
				}
				if tt.remoteErr != nil && calls != 1 {
					t.Fatalf("want exactly one attempt, got %d", calls)
				}
				if len(f.pub.events) != 0 {
					t.Fatalf("no event expected on failure, got %v", f.pub.events)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Price != 19.99 || got.Stock != 5 {
				t.Fatalf("want price 19.99 stock 5, got %v %v", got.Price, got.Stock)
			}
			if product.ID != 195 || product.Price != 19.99 || product.Stock != 5 {
				t.Fatalf("unexpected product %+v", product)
			}
			if len(f.pub.events) != 1 || f.pub.events[0].EventType != tt.wantEvent {
				t.Fatalf("want event %q, got %v", tt.wantEvent, f.pub.events)
			}
		})
	}
}

func TestDeleteProduct_ReconcilesListAndFavorites(t *testing.T) {
	tests := []struct {
		name       string
		remoteErr  error
		wantInList bool
		wantFav    bool
	}{
		{name: "confirmed delete removes from both", wantInList: false, wantFav: false},
		{name: "failed delete changes nothing", remoteErr: catalog.ErrNetwork, wantInList: true, wantFav: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := defaultRemote(catalogOf(50))
			remote.deleteFn = func(_ context.Context, _ int64) error { return tt.remoteErr }
			f := newFixture(remote)
			ctx := context.Background()

			sum := f.svc.CreateSession()
			if _, err := f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0); err != nil {
				t.Fatalf("browse: %v", err)
			}
			for skip := 10; skip < 50; skip += 10 {
				if _, err := f.svc.Browse(ctx, sum.ID, catalog.Filter{}, skip); err != nil {
					t.Fatalf("browse skip=%d: %v", skip, err)
				}
			}
			if _, added, err := f.svc.ToggleFavorite(ctx, sum.ID, 42); err != nil || !added {
				t.Fatalf("favorite 42: added=%v err=%v", added, err)
			}

			err := f.svc.DeleteProduct(ctx, 42)
			if tt.remoteErr != nil {
				if !errors.Is(err, tt.remoteErr) {
					t.Fatalf("want error %v, got %v", tt.remoteErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sess, _ := f.sessions.Get(sum.ID)
			if _, ok := sess.List.Find(42); ok != tt.wantInList {
				t.Fatalf("in list: want %v, got %v", tt.wantInList, ok)
			}
			if got := sess.Favorites.IsFavorite(42); got != tt.wantFav {
				t.Fatalf("favorite: want %v, got %v", tt.wantFav, got)
			}
			if tt.remoteErr == nil && (len(f.repo.removed) != 1 || f.repo.removed[0] != 42) {
				t.Fatalf("want persisted favorites of 42 removed, got %v", f.repo.removed)
			}
			if tt.remoteErr != nil && len(f.repo.removed) != 0 {
				t.Fatalf("persisted favorites must survive a failed delete, got %v", f.repo.removed)
			}
		})
	}
}

func TestDeleteProduct_ReachesEverySession(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(5)))
	ctx := context.Background()

	a := f.svc.CreateSession()
	b := f.svc.CreateSession()
	_, _ = f.svc.Browse(ctx, a.ID, catalog.Filter{}, 0)
	_, _, _ = f.svc.ToggleFavorite(ctx, b.ID, 3)

	if err := f.svc.DeleteProduct(ctx, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sa, _ := f.sessions.Get(a.ID)
	sb, _ := f.sessions.Get(b.ID)
	if _, ok := sa.List.Find(3); ok {
		t.Fatal("product 3 still listed in session a")
	}
	if sb.Favorites.IsFavorite(3) {
		t.Fatal("product 3 still favorited in session b")
	}
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(30)))
	ctx := context.Background()
	sum := f.svc.CreateSession()
	_, _ = f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0)

	p, added, err := f.svc.ToggleFavorite(ctx, sum.ID, 4)
	if err != nil || !added || p.ID != 4 {
		t.Fatalf("first toggle: product=%+v added=%v err=%v", p, added, err)
	}
	if len(f.repo.saved[sum.ID]) != 1 {
		t.Fatalf("want snapshot persisted, got %v", f.repo.saved[sum.ID])
	}

	_, added, err = f.svc.ToggleFavorite(ctx, sum.ID, 4)
	if err != nil || added {
		t.Fatalf("second toggle: added=%v err=%v", added, err)
	}
	if len(f.repo.saved[sum.ID]) != 0 {
		t.Fatalf("want snapshot removed, got %v", f.repo.saved[sum.ID])
	}

	t.Run("product outside the loaded page is fetched", func(t *testing.T) {
		p, added, err := f.svc.ToggleFavorite(ctx, sum.ID, 25)
		if err != nil || !added || p.Title != "Product 25" {
			t.Fatalf("product=%+v added=%v err=%v", p, added, err)
		}
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		_, _, err := f.svc.ToggleFavorite(ctx, sum.ID, 999)
		if !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("persistence failure is not surfaced", func(t *testing.T) {
		f.repo.err = errors.New("db down")
		defer func() { f.repo.err = nil }()

		_, added, err := f.svc.ToggleFavorite(ctx, sum.ID, 5)
		if err != nil || !added {
			t.Fatalf("added=%v err=%v", added, err)
		}
	})

	t.Run("events published per toggle", func(t *testing.T) {
		if len(f.pub.events) != 4 {
			t.Fatalf("want 4 events, got %d", len(f.pub.events))
		}
		if f.pub.events[0].EventType != catalog.EventFavoriteAdded || f.pub.events[1].EventType != catalog.EventFavoriteRemoved {
			t.Fatalf("unexpected events %v", f.pub.events)
		}
	})
}

func TestUpdateProduct_ReplacesListCopyOnly(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(5)))
	ctx := context.Background()
	sum := f.svc.CreateSession()
	_, _ = f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0)
	_, _, _ = f.svc.ToggleFavorite(ctx, sum.ID, 2)

	form := validForm()
	form.Title = "Renamed"
	updated, err := f.svc.UpdateProduct(ctx, 2, form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("want Renamed, got %q", updated.Title)
	}

	sess, _ := f.sessions.Get(sum.ID)
	listed, _ := sess.List.Find(2)
	if listed.Title != "Renamed" {
		t.Fatalf("list copy not replaced: %q", listed.Title)
	}
	fav, _ := sess.Favorites.Get(2)
	if fav.Title != "Product 2" {
		t.Fatalf("favorite snapshot must not change, got %q", fav.Title)
	}
}

func TestSearch_DebouncesToLastQuery(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(5)))
	ctx := context.Background()
	sum := f.svc.CreateSession()

	for _, q := range []string{"p", "ph", "pho", "phone"} {
		if err := f.svc.Search(ctx, sum.ID, q); err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for len(f.remote.listedFilters()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	listed := f.remote.listedFilters()
	if len(listed) != 1 || listed[0].Query != "phone" {
		t.Fatalf("want a single fetch for %q, got %v", "phone", listed)
	}

	state, _ := f.svc.ListState(ctx, sum.ID)
	if state.Filter.Query != "phone" || state.Status != store.StatusSucceeded {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestSelectCategory_ClearsQuery(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(5)))
	ctx := context.Background()
	sum := f.svc.CreateSession()

	_, _ = f.svc.Browse(ctx, sum.ID, catalog.Filter{Query: "product"}, 0)
	if err := f.svc.SelectCategory(ctx, sum.ID, "general"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(f.remote.listedFilters()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	state, _ := f.svc.ListState(ctx, sum.ID)
	if state.Filter != (catalog.Filter{Category: "general"}) {
		t.Fatalf("want category filter only, got %+v", state.Filter)
	}
}

func TestInfiniteScroll_LoadsNextPageOnce(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(25)))
	ctx := context.Background()
	sum := f.svc.CreateSession()

	state, err := f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}

	for want := 20; want <= 25; want += 5 {
		last := state.Products[len(state.Products)-1].ID
		bound, err := f.svc.BindSentinel(ctx, sum.ID, last)
		if err != nil || !bound {
			t.Fatalf("bind %d: bound=%v err=%v", last, bound, err)
		}

		var triggered bool
		state, triggered, err = f.svc.SentinelVisible(ctx, sum.ID, last)
		if err != nil || !triggered {
			t.Fatalf("visible %d: triggered=%v err=%v", last, triggered, err)
		}
		if len(state.Products) != want {
			t.Fatalf("want %d products, got %d", want, len(state.Products))
		}

		_, again, _ := f.svc.SentinelVisible(ctx, sum.ID, last)
		if again {
			t.Fatal("same sentinel must not trigger twice")
		}
	}

	if state.HasMore {
		t.Fatal("want hasMore=false at the end of the catalog")
	}
	last := state.Products[len(state.Products)-1].ID
	_, _ = f.svc.BindSentinel(ctx, sum.ID, last)
	if _, triggered, _ := f.svc.SentinelVisible(ctx, sum.ID, last); triggered {
		t.Fatal("no load-more once hasMore is false")
	}
}

func TestSentinelVisible_WaitsForInFlightLoad(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(30)))
	ctx := context.Background()
	sum := f.svc.CreateSession()

	if _, err := f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0); err != nil {
		t.Fatalf("browse: %v", err)
	}
	if bound, _ := f.svc.BindSentinel(ctx, sum.ID, 10); !bound {
		t.Fatal("want sentinel bound")
	}

	sess, _ := f.sessions.Get(sum.ID)
	inFlight := sess.List.Begin(catalog.Filter{}, 10)
	calls := len(f.remote.listedFilters())

	_, triggered, err := f.svc.SentinelVisible(ctx, sum.ID, 10)
	if err != nil || triggered {
		t.Fatalf("want no trigger while loading, got triggered=%v err=%v", triggered, err)
	}
	if got := len(f.remote.listedFilters()); got != calls {
		t.Fatalf("want no remote call while loading, got %d new", got-calls)
	}

	page, _ := f.remote.ListProducts(ctx, catalog.Filter{}, 10, 10)
	if err := sess.List.Apply(inFlight, page); err != nil {
		t.Fatalf("apply in-flight page: %v", err)
	}

	state, triggered, err := f.svc.SentinelVisible(ctx, sum.ID, 10)
	if err != nil || !triggered {
		t.Fatalf("want trigger once idle, got triggered=%v err=%v", triggered, err)
	}
	if len(state.Products) != 30 {
		t.Fatalf("want 30 products, got %d", len(state.Products))
	}
}

func TestBrowse_FailureKeepsLastPage(t *testing.T) {
	remote := defaultRemote(catalogOf(30))
	f := newFixture(remote)
	ctx := context.Background()
	sum := f.svc.CreateSession()

	_, _ = f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0)
	remote.listFn = func(_ context.Context, _ catalog.Filter, _, _ int) (catalog.Page, error) {
		return catalog.Page{}, fmt.Errorf("%w: timeout", catalog.ErrNetwork)
	}

	state, err := f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 10)
	if !errors.Is(err, catalog.ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
	if state.Status != store.StatusFailed || len(state.Products) != 10 {
		t.Fatalf("want failed status with 10 products, got %s with %d", state.Status, len(state.Products))
	}
}

func TestResetList(t *testing.T) {
	f := newFixture(defaultRemote(catalogOf(30)))
	ctx := context.Background()
	sum := f.svc.CreateSession()
	_, _ = f.svc.Browse(ctx, sum.ID, catalog.Filter{}, 0)

	state, err := f.svc.ResetList(ctx, sum.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Products) != 0 || !state.HasMore || state.Skip != 0 {
		t.Fatalf("unexpected state after reset %+v", state)
	}
}

func TestSession_RestoresPersistedFavorites(t *testing.T) {
	f := newFixture(defaultRemote(nil))
	id := uuid.NewString()
	f.repo.saved[id] = []catalog.Product{{ID: 8, Title: "Kept"}}

	favorites, err := f.svc.Favorites(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(favorites) != 1 || favorites[0].ID != 8 {
		t.Fatalf("want restored favorite 8, got %v", favorites)
	}

	if _, err := f.svc.Favorites(context.Background(), "bogus"); !errors.Is(err, catalog.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestPublishFailure_DoesNotFailMutation(t *testing.T) {
	f := newFixture(defaultRemote(nil))
	f.pub.err = errors.New("broker down")

	product, err := f.svc.CreateProduct(context.Background(), validForm())
	if err != nil {
		t.Fatalf("expected no error despite publish failure, got: %v", err)
	}
	if product.Title != "Mouse" {
		t.Fatalf("want title Mouse, got %q", product.Title)
	}
}
