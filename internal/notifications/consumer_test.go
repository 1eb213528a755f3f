package notifications

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"product-catalog/internal/catalog"
)

func TestHandleEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		body          func(t *testing.T) []byte
		wantMalformed bool
		wantLog       []string
	}{
		{
			name: "product deleted",
			body: func(t *testing.T) []byte {
				return mustJSON(t, catalog.Event{EventType: catalog.EventProductDeleted, ProductID: 42, Timestamp: ts})
			},
			wantLog: []string{`"msg":"catalog event"`, `"event_type":"product_deleted"`, `"product_id":42`},
		},
		{
			name: "favorite added",
			body: func(t *testing.T) []byte {
				return mustJSON(t, catalog.Event{EventType: catalog.EventFavoriteAdded, ProductID: 7, SessionID: "s-1", Timestamp: ts})
			},
			wantLog: []string{`"msg":"favorites event"`, `"session_id":"s-1"`},
		},
		{
			name:          "not json",
			body:          func(*testing.T) []byte { return []byte("{") },
			wantMalformed: true,
		},
		{
			name: "unknown type",
			body: func(t *testing.T) []byte {
				return mustJSON(t, catalog.Event{EventType: "price_changed", ProductID: 1})
			},
			wantMalformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			err := handleEvent(logger, tt.body(t))
			if tt.wantMalformed {
				if !errors.Is(err, errMalformed) {
					t.Fatalf("want malformed error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.wantLog {
				if !strings.Contains(buf.String(), want) {
					t.Fatalf("log %q does not contain %q", buf.String(), want)
				}
			}
		})
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
