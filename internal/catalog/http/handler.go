package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/session"
	"product-catalog/internal/catalog/store"

	"github.com/gin-gonic/gin"
)

const (
	defaultSkip = 0

	messageFavoriteAdded   = "Added to favorites"
	messageFavoriteRemoved = "Removed from favorites"
)

type CatalogService interface {
	CreateSession() session.Summary
	SessionSummary(ctx context.Context, id string) (session.Summary, error)
	CloseSession(id string) error
	Login(ctx context.Context, id, username, password string) (catalog.User, error)
	Logout(ctx context.Context, id string) error
	SetTheme(ctx context.Context, id, theme string) (catalog.Theme, error)
	ToggleTheme(ctx context.Context, id string) (catalog.Theme, error)

	Browse(ctx context.Context, id string, filter catalog.Filter, skip int) (store.ListState, error)
	Search(ctx context.Context, id, query string) error
	SelectCategory(ctx context.Context, id, category string) error
	ResetList(ctx context.Context, id string) (store.ListState, error)
	BindSentinel(ctx context.Context, id string, productID int64) (bool, error)
	SentinelVisible(ctx context.Context, id string, productID int64) (store.ListState, bool, error)

	Favorites(ctx context.Context, id string) ([]catalog.Product, error)
	ToggleFavorite(ctx context.Context, id string, productID int64) (catalog.Product, bool, error)

	Categories(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	CreateProduct(ctx context.Context, form catalog.ProductForm) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, form catalog.ProductForm) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Handler struct {
	service CatalogService
}

func NewHandler(svc CatalogService) *Handler {
	return &Handler{service: svc}
}

type errorResponse struct {
	Error string `json:"error" example:"product not found"`
}

type loginRequest struct {
	Username string `json:"username" example:"emilys"`
	Password string `json:"password" example:"emilyspass"`
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required" example:"dark"`
}

type themeResponse struct {
	Theme catalog.Theme `json:"theme" example:"dark"`
}

type searchRequest struct {
	Query string `json:"query" example:"phone"`
}

type categoryRequest struct {
	Category string `json:"category" example:"smartphones"`
}

type sentinelRequest struct {
	ProductID int64 `json:"product_id" binding:"required" example:"10"`
}

type bindResponse struct {
	Bound bool `json:"bound"`
}

type visibleResponse struct {
	Triggered bool            `json:"triggered"`
	List      store.ListState `json:"list"`
}

type favoriteResponse struct {
	Product  catalog.Product `json:"product"`
	Favorite bool            `json:"favorite"`
	Message  string          `json:"message" example:"Added to favorites"`
}

type listResponse struct {
	List    store.ListState `json:"list"`
	Message string          `json:"message,omitempty" example:"No products found"`
}

// CreateSession godoc
// @Summary      Open a browse session
// @Tags         sessions
// @Produce      json
// @Success      201  {object}  session.Summary
// @Router       /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.service.CreateSession())
}

// GetSession godoc
// @Summary      Session summary
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  session.Summary
// @Failure      404  {object}  errorResponse
// @Router       /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	summary, err := h.service.SessionSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get session")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CloseSession godoc
// @Summary      Close a browse session
// @Tags         sessions
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /sessions/{id} [delete]
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.service.CloseSession(c.Param("id")); err != nil {
		writeError(c, err, "failed to close session")
		return
	}
	c.Status(http.StatusNoContent)
}

// Login godoc
// @Summary      Mock login, any non-empty credentials are accepted
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Session ID"
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  catalog.User
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /sessions/{id}/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.service.Login(c.Request.Context(), c.Param("id"), req.Username, req.Password)
	if err != nil {
		writeError(c, err, "failed to log in")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout godoc
// @Summary      Log out of a session
// @Tags         sessions
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /sessions/{id}/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "failed to log out")
		return
	}
	c.Status(http.StatusNoContent)
}

// SetTheme godoc
// @Summary      Set the session theme
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Session ID"
// @Param        body  body      themeRequest  true  "light or dark"
// @Success      200   {object}  themeResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /sessions/{id}/theme [put]
func (h *Handler) SetTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	theme, err := h.service.SetTheme(c.Request.Context(), c.Param("id"), req.Theme)
	if err != nil {
		writeError(c, err, "failed to set theme")
		return
	}
	c.JSON(http.StatusOK, themeResponse{Theme: theme})
}

// ToggleTheme godoc
// @Summary      Switch between light and dark
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  themeResponse
// @Failure      404  {object}  errorResponse
// @Router       /sessions/{id}/theme/toggle [post]
func (h *Handler) ToggleTheme(c *gin.Context) {
	theme, err := h.service.ToggleTheme(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to toggle theme")
		return
	}
	c.JSON(http.StatusOK, themeResponse{Theme: theme})
}

// ListProducts godoc
// @Summary      Fetch one page into the session list
// @Description  skip=0 starts a fresh list for the filter, skip>0 must equal the current cursor.
// @Tags         browse
// @Produce      json
// @Param        id        path      string  true   "Session ID"
// @Param        q         query     string  false  "Search query"
// @Param        category  query     string  false  "Category, wins over q"
// @Param        skip      query     int     false  "Offset"  default(0)
// @Success      200       {object}  listResponse
// @Failure      404       {object}  errorResponse
// @Failure      409       {object}  errorResponse
// @Failure      502       {object}  errorResponse
// @Router       /sessions/{id}/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	filter := catalog.Filter{Query: c.Query("q"), Category: c.Query("category")}
	skip := parseQueryInt(c.Query("skip"), defaultSkip)

	state, err := h.service.Browse(c.Request.Context(), c.Param("id"), filter, skip)
	if err != nil {
		writeError(c, err, "failed to get products")
		return
	}
	c.JSON(http.StatusOK, newListResponse(state))
}

// Search godoc
// @Summary      Debounced search, only the last query in a quiet period runs
// @Tags         browse
// @Accept       json
// @Param        id    path  string         true  "Session ID"
// @Param        body  body  searchRequest  true  "Query"
// @Success      202
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /sessions/{id}/search [post]
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.service.Search(c.Request.Context(), c.Param("id"), req.Query); err != nil {
		writeError(c, err, "failed to schedule search")
		return
	}
	c.Status(http.StatusAccepted)
}

// SelectCategory godoc
// @Summary      Debounced category selection, clears the query
// @Tags         browse
// @Accept       json
// @Param        id    path  string           true  "Session ID"
// @Param        body  body  categoryRequest  true  "Category, empty for all"
// @Success      202
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /sessions/{id}/category [post]
func (h *Handler) SelectCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.service.SelectCategory(c.Request.Context(), c.Param("id"), req.Category); err != nil {
		writeError(c, err, "failed to select category")
		return
	}
	c.Status(http.StatusAccepted)
}

// ResetList godoc
// @Summary      Clear the session list
// @Tags         browse
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  store.ListState
// @Failure      404  {object}  errorResponse
// @Router       /sessions/{id}/products [delete]
func (h *Handler) ResetList(c *gin.Context) {
	state, err := h.service.ResetList(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to reset list")
		return
	}
	c.JSON(http.StatusOK, state)
}

// BindSentinel godoc
// @Summary      Observe the last rendered product
// @Tags         browse
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Session ID"
// @Param        body  body      sentinelRequest  true  "Sentinel"
// @Success      200   {object}  bindResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /sessions/{id}/scroll/sentinel [post]
func (h *Handler) BindSentinel(c *gin.Context) {
	var req sentinelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	bound, err := h.service.BindSentinel(c.Request.Context(), c.Param("id"), req.ProductID)
	if err != nil {
		writeError(c, err, "failed to bind sentinel")
		return
	}
	c.JSON(http.StatusOK, bindResponse{Bound: bound})
}

// SentinelVisible godoc
// @Summary      Report the sentinel entering the viewport
// @Description  Loads the next page when the bound sentinel is visible and more products exist.
// @Tags         browse
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Session ID"
// @Param        body  body      sentinelRequest  true  "Sentinel"
// @Success      200   {object}  visibleResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /sessions/{id}/scroll/visible [post]
func (h *Handler) SentinelVisible(c *gin.Context) {
	var req sentinelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	state, triggered, err := h.service.SentinelVisible(c.Request.Context(), c.Param("id"), req.ProductID)
	if err != nil {
		writeError(c, err, "failed to load more products")
		return
	}
	c.JSON(http.StatusOK, visibleResponse{Triggered: triggered, List: state})
}

// ListFavorites godoc
// @Summary      Favorites of a session in insertion order
// @Tags         favorites
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {array}   catalog.Product
// @Failure      404  {object}  errorResponse
// @Router       /sessions/{id}/favorites [get]
func (h *Handler) ListFavorites(c *gin.Context) {
	favorites, err := h.service.Favorites(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get favorites")
		return
	}
	c.JSON(http.StatusOK, favorites)
}

// ToggleFavorite godoc
// @Summary      Add or remove a product from favorites
// @Tags         favorites
// @Produce      json
// @Param        id         path      string  true  "Session ID"
// @Param        productId  path      int     true  "Product ID"
// @Success      200        {object}  favoriteResponse
// @Failure      400        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Failure      502        {object}  errorResponse
// @Router       /sessions/{id}/favorites/{productId} [post]
func (h *Handler) ToggleFavorite(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	product, added, err := h.service.ToggleFavorite(c.Request.Context(), c.Param("id"), productID)
	if err != nil {
		writeError(c, err, "failed to toggle favorite")
		return
	}

	message := messageFavoriteRemoved
	if added {
		message = messageFavoriteAdded
	}
	c.JSON(http.StatusOK, favoriteResponse{Product: product, Favorite: added, Message: message})
}

// ListCategories godoc
// @Summary      Product categories
// @Tags         products
// @Produce      json
// @Success      200  {array}   string
// @Failure      502  {object}  errorResponse
// @Router       /categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to get categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetProduct godoc
// @Summary      Get a product by ID
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  catalog.Product
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to get product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct godoc
// @Summary      Create a new product
// @Description  Price and stock may be sent as strings or numbers.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body      catalog.ProductForm  true  "Product data"
// @Success      201   {object}  catalog.Product
// @Failure      400   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	var form catalog.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), form)
	if err != nil {
		writeError(c, err, "failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path      int                  true  "Product ID"
// @Param        body  body      catalog.ProductForm  true  "Product data"
// @Success      200   {object}  catalog.Product
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /products/{id} [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	var form catalog.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), id, form)
	if err != nil {
		writeError(c, err, "failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary      Delete a product by ID
// @Description  On success the product leaves every session list and favorites set.
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err, "failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

func newListResponse(state store.ListState) listResponse {
	resp := listResponse{List: state}
	if state.Empty() {
		resp.Message = "No products found"
	}
	return resp
}

// writeError maps domain errors to status codes. Errors without a mapping
// are answered with fallback so internals never leak to the client.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidCredentials),
		errors.Is(err, catalog.ErrInvalidTheme):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, catalog.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: catalog.ErrSessionNotFound.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: catalog.ErrNotFound.Error()})
	case errors.Is(err, catalog.ErrStaleResponse):
		c.JSON(http.StatusConflict, errorResponse{Error: catalog.ErrStaleResponse.Error()})
	case errors.Is(err, catalog.ErrCreateFailed):
		c.JSON(http.StatusBadGateway, errorResponse{Error: catalog.ErrCreateFailed.Error()})
	case errors.Is(err, catalog.ErrNetwork):
		c.JSON(http.StatusBadGateway, errorResponse{Error: fallback})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
	}
}

func parseQueryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
