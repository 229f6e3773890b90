package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"kairos/internal/config"
	"kairos/internal/database"
	"kairos/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type categoryBody struct {
	ID          uint        `json:"id"`
	Description string      `json:"description"`
	Entries     []entryBody `json:"entries"`
}

type entryBody struct {
	ID         uint            `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	Timestamp  time.Time       `json:"timestamp"`
	CategoryID uint            `json:"category_id"`
}

type backupBody struct {
	ID         uint   `json:"id"`
	FileName   string `json:"file_name"`
	Categories int    `json:"categories"`
	Entries    int    `json:"entries"`
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Backup: config.BackupConfig{Dir: t.TempDir()},
		App:    config.AppSubConfig{PageSize: 100, MaxPageSize: 1000},
	}
	return SetupRouter(cfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createCategory(t *testing.T, r http.Handler, description string) categoryBody {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/categories", `{"description":"`+description+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[categoryBody](t, w)
}

func createEntry(t *testing.T, r http.Handler, body string) entryBody {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/entries", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[entryBody](t, w)
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status, code int) util.ErrorBody {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[util.ErrorBody](t, w)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Message)
	return body
}

func TestExampleScenario(t *testing.T) {
	r := setupTestRouter(t)

	cat := createCategory(t, r, "Alimentação")
	assert.Equal(t, uint(1), cat.ID)

	entry := createEntry(t, r, `{"amount": 25.50, "note": "Almoço", "category_id": 1}`)
	assert.True(t, decimal.RequireFromString("25.50").Equal(entry.Amount))
	assert.Equal(t, "Almoço", entry.Note)

	w := doRequest(r, http.MethodGet, "/entries/category/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]entryBody](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, entry.ID, list[0].ID)

	w = doRequest(r, http.MethodDelete, "/categories/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doRequest(r, http.MethodGet, "/entries/"+strconv.Itoa(int(entry.ID)), "")
	assertError(t, w, http.StatusNotFound, util.CodeNotFound)
}

func TestCategoryAPI_Errors(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   int
		field  string
	}{
		{"empty description", http.MethodPost, "/categories", `{"description":""}`, http.StatusBadRequest, util.CodeInvalidParam, "description"},
		{"too long", http.MethodPost, "/categories", `{"description":"` + strings.Repeat("x", 51) + `"}`, http.StatusBadRequest, util.CodeInvalidParam, "description"},
		{"duplicate", http.MethodPost, "/categories", `{"description":"Food"}`, http.StatusBadRequest, util.CodeDuplicate, "description"},
		{"malformed json", http.MethodPost, "/categories", `{"description":`, http.StatusBadRequest, util.CodeInvalidParam, ""},
		{"get missing", http.MethodGet, "/categories/99", "", http.StatusNotFound, util.CodeNotFound, ""},
		{"get bad id", http.MethodGet, "/categories/abc", "", http.StatusBadRequest, util.CodeInvalidParam, "id"},
		{"get zero id", http.MethodGet, "/categories/0", "", http.StatusBadRequest, util.CodeInvalidParam, "id"},
		{"update missing", http.MethodPut, "/categories/99", `{"description":"X"}`, http.StatusNotFound, util.CodeNotFound, ""},
		{"delete missing", http.MethodDelete, "/categories/99", "", http.StatusNotFound, util.CodeNotFound, ""},
		{"bad skip", http.MethodGet, "/categories?skip=x", "", http.StatusBadRequest, util.CodeInvalidParam, "skip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.method, tt.path, tt.body)
			body := assertError(t, w, tt.status, tt.code)
			assert.Equal(t, tt.field, body.Field)
		})
	}
}

func TestCategoryAPI_ListAndUpdate(t *testing.T) {
	r := setupTestRouter(t)
	for _, d := range []string{"A", "B", "C"} {
		createCategory(t, r, d)
	}

	w := doRequest(r, http.MethodGet, "/categories?skip=1&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
	page := decode[[]categoryBody](t, w)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Description)

	w = doRequest(r, http.MethodGet, "/categories?skip=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = doRequest(r, http.MethodPut, "/categories/2", `{"description":"Bills"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bills", decode[categoryBody](t, w).Description)

	w = doRequest(r, http.MethodPut, "/categories/2", `{"description":"A"}`)
	assertError(t, w, http.StatusBadRequest, util.CodeDuplicate)

	// empty body changes nothing
	w = doRequest(r, http.MethodPut, "/categories/2", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bills", decode[categoryBody](t, w).Description)
}

func TestCategoryAPI_GetEmbedsEntries(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")

	w := doRequest(r, http.MethodGet, "/categories/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":[]`)

	createEntry(t, r, `{"amount": 3, "category_id": 1}`)
	createEntry(t, r, `{"amount": "4.20", "category_id": 1}`)

	w = doRequest(r, http.MethodGet, "/categories/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	cat := decode[categoryBody](t, w)
	require.Len(t, cat.Entries, 2)
	assert.True(t, decimal.RequireFromString("4.2").Equal(cat.Entries[1].Amount))

	// listing does not embed entries
	w = doRequest(r, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "entries")
}

func TestEntryAPI_Errors(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   int
	}{
		{"zero amount", http.MethodPost, "/entries", `{"amount":0,"category_id":1}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"negative amount", http.MethodPost, "/entries", `{"amount":-5,"category_id":1}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"sub-cent amount", http.MethodPost, "/entries", `{"amount":"0.004","category_id":1}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"zero timestamp", http.MethodPost, "/entries", `{"amount":5,"category_id":1,"timestamp":"0001-01-01T00:00:00Z"}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"missing amount", http.MethodPost, "/entries", `{"category_id":1}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"amount not a number", http.MethodPost, "/entries", `{"amount":"abc","category_id":1}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"missing category", http.MethodPost, "/entries", `{"amount":5}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"unknown category", http.MethodPost, "/entries", `{"amount":5,"category_id":42}`, http.StatusBadRequest, util.CodeReference},
		{"note too long", http.MethodPost, "/entries", `{"amount":5,"category_id":1,"note":"` + strings.Repeat("n", 501) + `"}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"bad timestamp", http.MethodPost, "/entries", `{"amount":5,"category_id":1,"timestamp":"yesterday"}`, http.StatusBadRequest, util.CodeInvalidParam},
		{"get missing", http.MethodGet, "/entries/7", "", http.StatusNotFound, util.CodeNotFound},
		{"update missing", http.MethodPut, "/entries/7", `{"amount":1}`, http.StatusNotFound, util.CodeNotFound},
		{"bad category path id", http.MethodGet, "/entries/category/x", "", http.StatusBadRequest, util.CodeInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.method, tt.path, tt.body)
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestEntryAPI_PartialUpdate(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")
	createCategory(t, r, "Rent")
	e := createEntry(t, r, `{"amount":"10.00","note":"lunch","category_id":1,"timestamp":"2025-01-02T10:00:00Z"}`)
	path := "/entries/" + strconv.Itoa(int(e.ID))

	w := doRequest(r, http.MethodPut, path, `{"note":"dinner"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[entryBody](t, w)
	assert.Equal(t, "dinner", got.Note)
	assert.True(t, decimal.RequireFromString("10").Equal(got.Amount))
	assert.Equal(t, uint(1), got.CategoryID)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))

	w = doRequest(r, http.MethodPut, path, `{"category_id":2,"amount":12.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[entryBody](t, w)
	assert.Equal(t, uint(2), got.CategoryID)
	assert.Equal(t, "dinner", got.Note)

	w = doRequest(r, http.MethodPut, path, `{"amount":0}`)
	assertError(t, w, http.StatusBadRequest, util.CodeInvalidParam)
	w = doRequest(r, http.MethodPut, path, `{"category_id":99}`)
	assertError(t, w, http.StatusBadRequest, util.CodeReference)

	// rejected updates leave the row alone
	w = doRequest(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[entryBody](t, w)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.Amount))
	assert.Equal(t, uint(2), got.CategoryID)
}

func TestEntryAPI_ListAndDelete(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")
	for i := 1; i <= 3; i++ {
		createEntry(t, r, `{"amount":`+strconv.Itoa(i)+`,"category_id":1}`)
	}

	w := doRequest(r, http.MethodGet, "/entries?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
	assert.Len(t, decode[[]entryBody](t, w), 2)

	w = doRequest(r, http.MethodGet, "/entries/category/99", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = doRequest(r, http.MethodDelete, "/entries/2", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(r, http.MethodDelete, "/entries/2", "")
	assertError(t, w, http.StatusNotFound, util.CodeNotFound)

	w = doRequest(r, http.MethodGet, "/entries", "")
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
}

func TestExportAPI(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")
	createCategory(t, r, "Rent")
	createEntry(t, r, `{"amount":"12.5","note":"lunch","category_id":1,"timestamp":"2025-01-02T10:00:00Z"}`)
	createEntry(t, r, `{"amount":"900","category_id":2,"timestamp":"2025-01-01T00:00:00Z"}`)

	w := doRequest(r, http.MethodGet, "/entries/export/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	body := strings.TrimPrefix(w.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Category,Amount,Note,Timestamp", lines[0])
	assert.Equal(t, "1,Food,12.50,lunch,2025-01-02T10:00:00Z", lines[1])

	w = doRequest(r, http.MethodGet, "/entries/export/csv?category_id=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Food")
	assert.Contains(t, w.Body.String(), "Rent")

	w = doRequest(r, http.MethodGet, "/entries/export/csv?category_id=x", "")
	assertError(t, w, http.StatusBadRequest, util.CodeInvalidParam)

	w = doRequest(r, http.MethodGet, "/entries/export/xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Entries")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Category", "Amount", "Note", "Timestamp"}, rows[0])
	assert.Equal(t, "Food", rows[1][1])
	assert.Equal(t, "Rent", rows[2][1])
}

func TestBackupAPI(t *testing.T) {
	r := setupTestRouter(t)
	createCategory(t, r, "Food")
	createEntry(t, r, `{"amount":"12.5","category_id":1}`)

	w := doRequest(r, http.MethodPost, "/backups", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[backupBody](t, w)
	assert.Equal(t, 1, b.Categories)
	assert.Equal(t, 1, b.Entries)
	idPath := "/backups/" + strconv.Itoa(int(b.ID))

	w = doRequest(r, http.MethodGet, "/backups", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]backupBody](t, w), 1)

	w = doRequest(r, http.MethodGet, idPath+"/download", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), b.FileName)
	assert.Contains(t, w.Body.String(), `"description": "Food"`)

	// wipe and restore
	require.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, "/categories/1", "").Code)
	w = doRequest(r, http.MethodPost, idPath+"/restore", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(r, http.MethodGet, "/categories/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[categoryBody](t, w).Entries, 1)

	require.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, idPath, "").Code)
	assertError(t, doRequest(r, http.MethodDelete, idPath, ""), http.StatusNotFound, util.CodeNotFound)
	assertError(t, doRequest(r, http.MethodPost, idPath+"/restore", ""), http.StatusNotFound, util.CodeNotFound)
}

func TestHealthAndInfo(t *testing.T) {
	r := setupTestRouter(t)

	w := doRequest(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"connected"}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"kairos"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
