package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kairos/internal/models"
	"kairos/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler streams entries as CSV or XLSX.
type ExportHandler struct {
	Store EntryStore
}

func NewExportHandler(s EntryStore) *ExportHandler {
	return &ExportHandler{Store: s}
}

var exportHeaders = []string{"ID", "Category", "Amount", "Note", "Timestamp"}

func exportRow(e *models.Entry) []string {
	category := ""
	if e.Category != nil {
		category = e.Category.Description
	}
	return []string{
		strconv.FormatUint(uint64(e.ID), 10),
		category,
		e.Amount.StringFixed(2),
		e.Note,
		e.Timestamp.UTC().Format(time.RFC3339),
	}
}

// loadEntries reads the optional category_id filter and fetches the entries.
func (h *ExportHandler) loadEntries(c *gin.Context) ([]models.Entry, bool) {
	var categoryID *uint
	if s := c.Query("category_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil || id == 0 {
			util.FieldError(c, http.StatusBadRequest, util.CodeInvalidParam, "category_id", "category_id must be a positive integer")
			return nil, false
		}
		v := uint(id)
		categoryID = &v
	}

	entries, err := h.Store.All(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, "entry", err)
		return nil, false
	}
	return entries, true
}

func attachmentName(ext string) string {
	return fmt.Sprintf("attachment; filename=\"entries_%s.%s\"", time.Now().Format("20060102"), ext)
}

// ExportCSV writes entries as CSV with a UTF-8 BOM.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	entries, ok := h.loadEntries(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", attachmentName("csv"))
	c.Status(http.StatusOK)

	// UTF-8 BOM so spreadsheet apps pick the right encoding
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeaders)
	for i := range entries {
		_ = w.Write(exportRow(&entries[i]))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = c.Error(err)
	}
}

// ExportXLSX writes entries as a single-sheet workbook.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	entries, ok := h.loadEntries(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Entries"
	index, err := f.NewSheet(sheet)
	if err != nil {
		respondError(c, "entry", fmt.Errorf("create sheet: %w", err))
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for i := range entries {
		e := &entries[i]
		row := i + 2
		amount, _ := e.Amount.Float64()
		values := []any{e.ID, "", amount, e.Note, e.Timestamp.UTC()}
		if e.Category != nil {
			values[1] = e.Category.Description
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	_ = f.SetColWidth(sheet, "D", "D", 40)
	_ = f.SetColWidth(sheet, "E", "E", 22)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", attachmentName("xlsx"))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
