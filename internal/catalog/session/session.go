package session

import (
	"strings"
	"sync"
	"time"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/store"
)

const mockUserID = 1

// Session is the client state container of one browser: its product list,
// favorites, scroll observation, pending search and the mock login/theme.
type Session struct {
	ID        string
	CreatedAt time.Time

	List      *store.ListStore
	Favorites *store.Favorites
	Scroll    *store.ScrollController
	Search    *store.Debouncer

	mu    sync.RWMutex
	user  *catalog.User
	theme catalog.Theme
}

type Summary struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	User      *catalog.User  `json:"user,omitempty"`
	Theme     catalog.Theme  `json:"theme" example:"light"`
	Filter    catalog.Filter `json:"filter"`
	Loaded    int            `json:"loaded"`
	Favorites int            `json:"favorites"`
	Status    store.Status   `json:"status"`
}

func newSession(id string, source store.PageSource, pageSize int, debounce time.Duration) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		List:      store.NewListStore(source, pageSize),
		Favorites: store.NewFavorites(),
		Scroll:    store.NewScrollController(),
		Search:    store.NewDebouncer(debounce),
		theme:     catalog.ThemeLight,
	}
}

// Login accepts any non-empty username and password.
func (s *Session) Login(username, password string) (catalog.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return catalog.User{}, catalog.ErrInvalidCredentials
	}

	user := catalog.User{
		ID:       mockUserID,
		Username: username,
		Email:    username + "@example.com",
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return user, nil
}

func (s *Session) Logout() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

func (s *Session) User() (catalog.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return catalog.User{}, false
	}
	return *s.user, true
}

func (s *Session) Theme() catalog.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Session) SetTheme(theme catalog.Theme) {
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
}

func (s *Session) ToggleTheme() catalog.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == catalog.ThemeDark {
		s.theme = catalog.ThemeLight
	} else {
		s.theme = catalog.ThemeDark
	}
	return s.theme
}

// Close cancels any pending debounced search.
func (s *Session) Close() {
	s.Search.Cancel()
}

func (s *Session) Summary() Summary {
	state := s.List.State()
	sum := Summary{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Theme:     s.Theme(),
		Filter:    state.Filter,
		Loaded:    len(state.Products),
		Favorites: s.Favorites.Len(),
		Status:    state.Status,
	}
	if user, ok := s.User(); ok {
		sum.User = &user
	}
	return sum
}
