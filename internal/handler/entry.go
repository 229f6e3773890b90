package handler

import (
	"context"
	"net/http"
	"time"

	"kairos/internal/models"
	"kairos/internal/store"
	"kairos/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// EntryStore is what EntryHandler and ExportHandler need from the entry store.
type EntryStore interface {
	Create(ctx context.Context, in store.EntryInput) (*models.Entry, error)
	Get(ctx context.Context, id uint) (*models.Entry, error)
	List(ctx context.Context, p store.Page) ([]models.Entry, error)
	Count(ctx context.Context) (int64, error)
	ListByCategory(ctx context.Context, categoryID uint) ([]models.Entry, error)
	All(ctx context.Context, categoryID *uint) ([]models.Entry, error)
	Update(ctx context.Context, id uint, patch store.EntryPatch) (*models.Entry, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// EntryHandler serves /entries.
type EntryHandler struct {
	Store EntryStore
}

func NewEntryHandler(s EntryStore) *EntryHandler {
	return &EntryHandler{Store: s}
}

// ---------- request / response ----------

// amount accepts both a JSON number and a decimal string.
type createEntryReq struct {
	Amount     *decimal.Decimal `json:"amount"`
	Note       string           `json:"note"`
	CategoryID uint             `json:"category_id"`
	Timestamp  *time.Time       `json:"timestamp"`
}

type updateEntryReq struct {
	Amount     *decimal.Decimal `json:"amount"`
	Note       *string          `json:"note"`
	CategoryID *uint            `json:"category_id"`
	Timestamp  *time.Time       `json:"timestamp"`
}

type entryResp struct {
	ID         uint            `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	Timestamp  time.Time       `json:"timestamp"`
	CategoryID uint            `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toEntryResp(e *models.Entry) entryResp {
	return entryResp{
		ID:         e.ID,
		Amount:     e.Amount,
		Note:       e.Note,
		Timestamp:  e.Timestamp,
		CategoryID: e.CategoryID,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func toEntryResps(entries []models.Entry) []entryResp {
	resp := make([]entryResp, 0, len(entries))
	for i := range entries {
		resp = append(resp, toEntryResp(&entries[i]))
	}
	return resp
}

// ---------- handlers ----------

func (h *EntryHandler) Create(c *gin.Context) {
	var req createEntryReq
	if !bindJSON(c, &req) {
		return
	}
	if req.Amount == nil {
		util.FieldError(c, http.StatusBadRequest, util.CodeInvalidParam, "amount", "invalid amount: is required")
		return
	}

	e, err := h.Store.Create(c.Request.Context(), store.EntryInput{
		Amount:     *req.Amount,
		Note:       req.Note,
		CategoryID: req.CategoryID,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		respondError(c, "entry", err)
		return
	}
	c.JSON(http.StatusCreated, toEntryResp(e))
}

func (h *EntryHandler) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	total, err := h.Store.Count(ctx)
	if err != nil {
		respondError(c, "entry", err)
		return
	}
	entries, err := h.Store.List(ctx, page)
	if err != nil {
		respondError(c, "entry", err)
		return
	}

	setTotalCount(c, total)
	c.JSON(http.StatusOK, toEntryResps(entries))
}

// ListByCategory returns every entry of a category. An unknown category
// yields an empty list.
func (h *EntryHandler) ListByCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.Store.ListByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, "entry", err)
		return
	}
	c.JSON(http.StatusOK, toEntryResps(entries))
}

func (h *EntryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	e, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "entry", err)
		return
	}
	c.JSON(http.StatusOK, toEntryResp(e))
}

// Update applies only the fields present in the body.
func (h *EntryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateEntryReq
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.Store.Update(c.Request.Context(), id, store.EntryPatch{
		Amount:     req.Amount,
		Note:       req.Note,
		CategoryID: req.CategoryID,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		respondError(c, "entry", err)
		return
	}
	c.JSON(http.StatusOK, toEntryResp(e))
}

func (h *EntryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	found, err := h.Store.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, "entry", err)
		return
	}
	if !found {
		respondError(c, "entry", store.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
