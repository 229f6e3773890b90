package handler

import (
	"context"
	"net/http"
	"time"

	"kairos/internal/models"
	"kairos/internal/store"

	"github.com/gin-gonic/gin"
)

// CategoryStore is what CategoryHandler needs from the category store.
type CategoryStore interface {
	Create(ctx context.Context, in store.CategoryInput) (*models.Category, error)
	Get(ctx context.Context, id uint, withEntries bool) (*models.Category, error)
	List(ctx context.Context, p store.Page) ([]models.Category, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id uint, patch store.CategoryPatch) (*models.Category, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// CategoryHandler serves /categories.
type CategoryHandler struct {
	Store CategoryStore
}

func NewCategoryHandler(s CategoryStore) *CategoryHandler {
	return &CategoryHandler{Store: s}
}

// ---------- request / response ----------

type createCategoryReq struct {
	Description string `json:"description"`
}

type updateCategoryReq struct {
	Description *string `json:"description"`
}

type categoryResp struct {
	ID          uint      `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type categoryDetailResp struct {
	categoryResp
	Entries []entryResp `json:"entries"`
}

func toCategoryResp(cat *models.Category) categoryResp {
	return categoryResp{
		ID:          cat.ID,
		Description: cat.Description,
		CreatedAt:   cat.CreatedAt,
		UpdatedAt:   cat.UpdatedAt,
	}
}

// ---------- handlers ----------

func (h *CategoryHandler) Create(c *gin.Context) {
	var req createCategoryReq
	if !bindJSON(c, &req) {
		return
	}

	cat, err := h.Store.Create(c.Request.Context(), store.CategoryInput{Description: req.Description})
	if err != nil {
		respondError(c, "category", err)
		return
	}
	c.JSON(http.StatusCreated, toCategoryResp(cat))
}

func (h *CategoryHandler) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	total, err := h.Store.Count(ctx)
	if err != nil {
		respondError(c, "category", err)
		return
	}
	cats, err := h.Store.List(ctx, page)
	if err != nil {
		respondError(c, "category", err)
		return
	}

	resp := make([]categoryResp, 0, len(cats))
	for i := range cats {
		resp = append(resp, toCategoryResp(&cats[i]))
	}
	setTotalCount(c, total)
	c.JSON(http.StatusOK, resp)
}

// Get returns one category together with its entries.
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	cat, err := h.Store.Get(c.Request.Context(), id, true)
	if err != nil {
		respondError(c, "category", err)
		return
	}

	resp := categoryDetailResp{
		categoryResp: toCategoryResp(cat),
		Entries:      make([]entryResp, 0, len(cat.Entries)),
	}
	for i := range cat.Entries {
		resp.Entries = append(resp.Entries, toEntryResp(&cat.Entries[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateCategoryReq
	if !bindJSON(c, &req) {
		return
	}

	cat, err := h.Store.Update(c.Request.Context(), id, store.CategoryPatch{Description: req.Description})
	if err != nil {
		respondError(c, "category", err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResp(cat))
}

// Delete removes the category and every entry that belongs to it.
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	found, err := h.Store.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, "category", err)
		return
	}
	if !found {
		respondError(c, "category", store.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
