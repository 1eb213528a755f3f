package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/session"
	"product-catalog/internal/catalog/store"
)

const defaultBackgroundTimeout = 15 * time.Second

type Remote interface {
	store.PageSource
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type FavoritesRepository interface {
	SaveFavorite(ctx context.Context, sessionID string, p catalog.Product) error
	RemoveFavorite(ctx context.Context, sessionID string, productID int64) error
	RemoveProduct(ctx context.Context, productID int64) (int64, error)
	ListFavorites(ctx context.Context, sessionID string) ([]catalog.Product, error)
}

type Publisher interface {
	Publish(ctx context.Context, event catalog.Event) error
}

// Service coordinates browse sessions with the remote product service.
// It is the only component that writes to both a session's list and its
// favorites in one operation.
type Service struct {
	remote    Remote
	sessions  *session.Registry
	favorites FavoritesRepository
	publisher Publisher
	logger    *slog.Logger
	metrics   *Metrics

	backgroundTimeout time.Duration
}

func New(remote Remote, sessions *session.Registry, favorites FavoritesRepository, publisher Publisher, logger *slog.Logger, metrics *Metrics) *Service {
	return &Service{
		remote:            remote,
		sessions:          sessions,
		favorites:         favorites,
		publisher:         publisher,
		logger:            logger,
		metrics:           metrics,
		backgroundTimeout: defaultBackgroundTimeout,
	}
}

func (s *Service) CreateSession() session.Summary {
	return s.sessions.Create().Summary()
}

// Session returns the container for id. A well-formed id unknown to this
// process is re-created and its favorites are restored from storage.
func (s *Service) Session(ctx context.Context, id string) (*session.Session, error) {
	sess, created, err := s.sessions.Restore(id)
	if err != nil {
		return nil, err
	}
	if !created {
		return sess, nil
	}

	favorites, err := s.favorites.ListFavorites(ctx, sess.ID)
	if err != nil {
		s.logger.Error("restore favorites failed", "session_id", sess.ID, "error", err)
		return sess, nil
	}
	sess.Favorites.Load(favorites)
	s.logger.Info("session restored", "session_id", sess.ID, "favorites", len(favorites))
	return sess, nil
}

func (s *Service) SessionSummary(ctx context.Context, id string) (session.Summary, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return session.Summary{}, err
	}
	return sess.Summary(), nil
}

func (s *Service) CloseSession(id string) error {
	if !s.sessions.Delete(id) {
		return catalog.ErrSessionNotFound
	}
	return nil
}

func (s *Service) Login(ctx context.Context, id, username, password string) (catalog.User, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return catalog.User{}, err
	}
	return sess.Login(username, password)
}

func (s *Service) Logout(ctx context.Context, id string) error {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	sess.Logout()
	return nil
}

func (s *Service) SetTheme(ctx context.Context, id, raw string) (catalog.Theme, error) {
	theme, err := catalog.ParseTheme(raw)
	if err != nil {
		return "", err
	}
	sess, err := s.Session(ctx, id)
	if err != nil {
		return "", err
	}
	sess.SetTheme(theme)
	return theme, nil
}

func (s *Service) ToggleTheme(ctx context.Context, id string) (catalog.Theme, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return "", err
	}
	return sess.ToggleTheme(), nil
}

// Browse fetches one page for filter at skip and returns the resulting list state.
func (s *Service) Browse(ctx context.Context, id string, filter catalog.Filter, skip int) (store.ListState, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return store.ListState{}, err
	}
	return s.browse(ctx, sess, filter, skip)
}

func (s *Service) browse(ctx context.Context, sess *session.Session, filter catalog.Filter, skip int) (store.ListState, error) {
	if skip <= 0 {
		sess.Scroll.Unbind()
	}
	state, err := sess.List.FetchPage(ctx, filter, skip)
	s.recordFetch(sess.ID, err)
	return state, err
}

// Search schedules a fresh fetch for query after the debounce quiet period.
// Only the last call within one period runs.
func (s *Service) Search(ctx context.Context, id, query string) error {
	return s.debounce(ctx, id, catalog.Filter{Query: query})
}

// SelectCategory schedules a fresh fetch for category. It clears any query.
func (s *Service) SelectCategory(ctx context.Context, id, category string) error {
	return s.debounce(ctx, id, catalog.Filter{Category: category})
}

func (s *Service) debounce(ctx context.Context, id string, filter catalog.Filter) error {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return err
	}

	sess.Search.Schedule(func() {
		bg, cancel := context.WithTimeout(context.Background(), s.backgroundTimeout)
		defer cancel()
		_, _ = s.browse(bg, sess, filter, 0)
	})
	return nil
}

func (s *Service) ResetList(ctx context.Context, id string) (store.ListState, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return store.ListState{}, err
	}
	sess.Search.Cancel()
	sess.Scroll.Unbind()
	sess.List.Reset()
	return sess.List.State(), nil
}

func (s *Service) ListState(ctx context.Context, id string) (store.ListState, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return store.ListState{}, err
	}
	return sess.List.State(), nil
}

// BindSentinel observes productID as the last rendered item.
func (s *Service) BindSentinel(ctx context.Context, id string, productID int64) (bool, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return false, err
	}
	return sess.Scroll.Bind(productID, sess.List.IsLoading()), nil
}

// SentinelVisible reports productID entering the viewport. When the scroll
// controller triggers, the next page is loaded before returning. Nothing is
// triggered while another load is in flight; the sentinel stays bound.
func (s *Service) SentinelVisible(ctx context.Context, id string, productID int64) (store.ListState, bool, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return store.ListState{}, false, err
	}
	if sess.List.IsLoading() || !sess.Scroll.Visible(productID, sess.List.HasMore()) {
		return sess.List.State(), false, nil
	}
	defer sess.Scroll.Done()

	state, err := sess.List.FetchNext(ctx)
	s.recordFetch(sess.ID, err)
	return state, true, err
}

func (s *Service) Favorites(ctx context.Context, id string) ([]catalog.Product, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Favorites.List(), nil
}

// ToggleFavorite flips productID in the session's favorites. The snapshot is
// taken from the loaded list, then the favorites, then the remote service.
// Persistence failures are logged and never surfaced.
func (s *Service) ToggleFavorite(ctx context.Context, id string, productID int64) (catalog.Product, bool, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return catalog.Product{}, false, err
	}

	product, ok := sess.List.Find(productID)
	if !ok {
		product, ok = sess.Favorites.Get(productID)
	}
	if !ok {
		product, err = s.remote.GetProduct(ctx, productID)
		if err != nil {
			return catalog.Product{}, false, fmt.Errorf("remote get: %w", err)
		}
	}

	added := sess.Favorites.Toggle(product)

	eventType, action := catalog.EventFavoriteRemoved, actionRemoved
	if added {
		eventType, action = catalog.EventFavoriteAdded, actionAdded
		err = s.favorites.SaveFavorite(ctx, sess.ID, product)
	} else {
		err = s.favorites.RemoveFavorite(ctx, sess.ID, product.ID)
	}
	if err != nil {
		s.logger.Error("persist favorite failed",
			"session_id", sess.ID,
			"product_id", product.ID,
			"error", err,
		)
	}

	s.publish(ctx, catalog.Event{
		EventType: eventType,
		ProductID: product.ID,
		Title:     product.Title,
		SessionID: sess.ID,
		Timestamp: time.Now().UTC(),
	})
	s.metrics.FavoritesToggled.WithLabelValues(action).Inc()
	return product, added, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.remote.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote categories: %w", err)
	}
	return categories, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	product, err := s.remote.GetProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("remote get: %w", err)
	}
	return product, nil
}

// CreateProduct validates form and submits it once. Remote failures are
// reported as catalog.ErrCreateFailed.
func (s *Service) CreateProduct(ctx context.Context, form catalog.ProductForm) (catalog.Product, error) {
	in, err := form.Parse()
	if err != nil {
		return catalog.Product{}, err
	}

	product, err := s.remote.CreateProduct(ctx, in)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("%w: %w", catalog.ErrCreateFailed, err)
	}

	s.publish(ctx, catalog.Event{
		EventType: catalog.EventProductCreated,
		ProductID: product.ID,
		Title:     product.Title,
		Timestamp: time.Now().UTC(),
	})
	s.metrics.Created.Inc()
	return product, nil
}

// UpdateProduct submits form for id and replaces the local copy in every
// session list. Favorite snapshots are left as they are.
func (s *Service) UpdateProduct(ctx context.Context, id int64, form catalog.ProductForm) (catalog.Product, error) {
	in, err := form.Parse()
	if err != nil {
		return catalog.Product{}, err
	}

	product, err := s.remote.UpdateProduct(ctx, id, in)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("remote update: %w", err)
	}
	if product.ID == 0 {
		product.ID = id
	}

	s.sessions.Each(func(sess *session.Session) {
		sess.List.Replace(product)
	})

	s.publish(ctx, catalog.Event{
		EventType: catalog.EventProductUpdated,
		ProductID: product.ID,
		Title:     product.Title,
		Timestamp: time.Now().UTC(),
	})
	s.metrics.Updated.Inc()
	return product, nil
}

// DeleteProduct removes id remotely and, only once that is confirmed, from
// every session list and favorites set.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.remote.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("remote delete: %w", err)
	}

	s.sessions.Each(func(sess *session.Session) {
		sess.List.Remove(id)
		sess.Favorites.Remove(id)
	})
	if _, err := s.favorites.RemoveProduct(ctx, id); err != nil {
		s.logger.Error("remove persisted favorites failed", "product_id", id, "error", err)
	}

	s.publish(ctx, catalog.Event{
		EventType: catalog.EventProductDeleted,
		ProductID: id,
		Timestamp: time.Now().UTC(),
	})
	s.metrics.Deleted.Inc()
	return nil
}

func (s *Service) publish(ctx context.Context, event catalog.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("publish event failed",
			"event_type", event.EventType,
			"product_id", event.ProductID,
			"error", err,
		)
	}
}

func (s *Service) recordFetch(sessionID string, err error) {
	switch {
	case err == nil:
		s.metrics.PageFetches.WithLabelValues(outcomeApplied).Inc()
	case errors.Is(err, catalog.ErrStaleResponse):
		s.metrics.PageFetches.WithLabelValues(outcomeStale).Inc()
		s.logger.Info("stale page discarded", "session_id", sessionID)
	default:
		s.metrics.PageFetches.WithLabelValues(outcomeFailed).Inc()
		s.logger.Error("fetch products failed", "session_id", sessionID, "error", err)
	}
}
