package store

import "sync"

type ScrollState string

const (
	ScrollIdle      ScrollState = "idle"
	ScrollWatching  ScrollState = "watching"
	ScrollTriggered ScrollState = "triggered"
)

// ScrollController watches a single sentinel, the id of the last rendered
// product, and decides when the next page must be requested.
type ScrollController struct {
	mu       sync.Mutex
	state    ScrollState
	sentinel int64
}

func NewScrollController() *ScrollController {
	return &ScrollController{state: ScrollIdle}
}

// Bind observes sentinel, discarding any previous observation. Nothing is
// observed while a load is in flight.
func (c *ScrollController) Bind(sentinel int64, isLoading bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isLoading {
		return false
	}
	c.sentinel = sentinel
	c.state = ScrollWatching
	return true
}

// Visible reports that sentinel entered the viewport. It returns true when
// the caller must load the next page.
func (c *ScrollController) Visible(sentinel int64, hasMore bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ScrollWatching || c.sentinel != sentinel || !hasMore {
		return false
	}
	c.state = ScrollTriggered
	c.sentinel = 0
	return true
}

// Done marks the triggered load as finished. The controller waits for the
// next Bind.
func (c *ScrollController) Done() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ScrollTriggered {
		c.state = ScrollIdle
	}
}

// Unbind stops observing, e.g. when the list is reset.
func (c *ScrollController) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = ScrollIdle
	c.sentinel = 0
}

func (c *ScrollController) State() ScrollState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
