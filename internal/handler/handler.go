package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"kairos/internal/store"
	"kairos/internal/util"

	"github.com/gin-gonic/gin"
)

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		util.FieldError(c, http.StatusBadRequest, util.CodeInvalidParam, name, "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// parsePage reads the skip and limit query parameters. Missing values are left
// zero and the store applies its defaults.
func parsePage(c *gin.Context) (store.Page, bool) {
	var p store.Page
	if s := c.Query("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			util.FieldError(c, http.StatusBadRequest, util.CodeInvalidParam, "skip", "skip must be an integer")
			return p, false
		}
		p.Offset = n
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			util.FieldError(c, http.StatusBadRequest, util.CodeInvalidParam, "limit", "limit must be an integer")
			return p, false
		}
		p.Limit = n
	}
	return p, true
}

func setTotalCount(c *gin.Context, n int64) {
	c.Header("X-Total-Count", strconv.FormatInt(n, 10))
}

// respondError maps a store error onto the HTTP error envelope.
// what names the resource in not-found messages.
func respondError(c *gin.Context, what string, err error) {
	var (
		validationErr *store.ValidationError
		duplicateErr  *store.DuplicateError
		referenceErr  *store.ReferenceError
	)
	switch {
	case errors.As(err, &validationErr):
		util.FieldError(c, http.StatusBadRequest, util.CodeInvalidParam, validationErr.Field, validationErr.Error())
	case errors.As(err, &duplicateErr):
		util.FieldError(c, http.StatusBadRequest, util.CodeDuplicate, duplicateErr.Field, duplicateErr.Error())
	case errors.As(err, &referenceErr):
		util.FieldError(c, http.StatusBadRequest, util.CodeReference, referenceErr.Field, referenceErr.Error())
	case errors.Is(err, store.ErrNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, what+" not found")
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		_ = c.Error(err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal server error")
	}
}

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body: "+err.Error())
		return false
	}
	return true
}
