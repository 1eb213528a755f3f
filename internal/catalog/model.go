package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("product not found")
	ErrNetwork            = errors.New("product service request failed")
	ErrStaleResponse      = errors.New("response belongs to a stale filter context")
	ErrInvalidProduct     = errors.New("invalid product fields")
	ErrCreateFailed       = errors.New("unable to create product, please try again")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("please enter username and password")
	ErrInvalidTheme       = errors.New("theme must be light or dark")
)

const (
	EventProductCreated  = "product_created"
	EventProductUpdated  = "product_updated"
	EventProductDeleted  = "product_deleted"
	EventFavoriteAdded   = "favorite_added"
	EventFavoriteRemoved = "favorite_removed"
)

type Product struct {
	ID          int64    `json:"id" example:"1"`
	Title       string   `json:"title" example:"Essence Mascara Lash Princess"`
	Description string   `json:"description"`
	Price       float64  `json:"price" example:"9.99"`
	Brand       string   `json:"brand" example:"Essence"`
	Category    string   `json:"category" example:"beauty"`
	Rating      float64  `json:"rating" example:"4.94"`
	Stock       int      `json:"stock" example:"5"`
	Thumbnail   string   `json:"thumbnail"`
	Images      []string `json:"images"`
}

// Clone returns a snapshot that shares no memory with p.
func (p Product) Clone() Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}

// Filter is the active filter context of a browse session. Query and
// Category are mutually exclusive; both empty means the unfiltered catalog.
type Filter struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// Normalize trims both fields. A category selection wins over a query.
func (f Filter) Normalize() Filter {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	if f.Category != "" {
		f.Query = ""
	}
	return f
}

func (f Filter) IsZero() bool {
	return f.Query == "" && f.Category == ""
}

type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(raw string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", ErrInvalidTheme
}

type Event struct {
	EventType string    `json:"event_type"`
	ProductID int64     `json:"product_id"`
	Title     string    `json:"title,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
