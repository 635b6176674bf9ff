// internal/handler/export_handler.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
)

// CustomerLister is the slice of the customer service the export needs.
type CustomerLister interface {
	ListAll(ctx context.Context) ([]model.CustomerDetail, error)
}

// ExportHandler serves every customer with preferences and visit records as an xlsx workbook.
type ExportHandler struct {
	Customers CustomerLister
	logger    *zap.Logger
}

func NewExportHandler(customers CustomerLister, log *zap.Logger) *ExportHandler {
	return &ExportHandler{
		Customers: customers,
		logger:    logger.OrNop(log).With(zap.String("component", "export")),
	}
}

const (
	customersSheet    = "Customers"
	preferencesSheet  = "Preferences"
	visitRecordsSheet = "VisitRecords"
)

var (
	customerHeader    = []string{"ID", "Name", "Furigana", "Gender", "Phone Number", "Email", "Birthday", "Address", "Created At"}
	preferenceHeader  = []string{"ID", "Customer ID", "Preference"}
	visitRecordHeader = []string{"ID", "Customer ID", "Visit Date", "Total Spent", "Notes"}
)

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	details, err := h.Customers.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list customers for export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	data, err := GenerateCustomerWorkbook(details)
	if err != nil {
		h.logger.Error("generate customer workbook failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	filename := fmt.Sprintf("customers-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GenerateCustomerWorkbook writes one sheet per collection. Rows follow the order of details.
func GenerateCustomerWorkbook(details []model.CustomerDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", customersSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{preferencesSheet, visitRecordsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := map[string][]string{
		customersSheet:    customerHeader,
		preferencesSheet:  preferenceHeader,
		visitRecordsSheet: visitRecordHeader,
	}
	for sheet, header := range sheets {
		if err := writeRow(f, sheet, 1, toRow(header)); err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	prefRow, visitRow := 2, 2
	for i, d := range details {
		c := d.Customer
		if err := writeRow(f, customersSheet, i+2, []interface{}{
			c.ID, c.Name, c.Furigana, string(c.Gender), c.PhoneNumber, c.Email,
			dateCell(c.Birthday), c.Address, c.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return nil, err
		}
		for _, p := range d.Preferences {
			if err := writeRow(f, preferencesSheet, prefRow, []interface{}{p.ID, p.CustomerID, p.Preference}); err != nil {
				return nil, err
			}
			prefRow++
		}
		for _, v := range d.VisitRecords {
			if err := writeRow(f, visitRecordsSheet, visitRow, []interface{}{
				v.ID, v.CustomerID, dateCell(v.VisitDate), v.TotalSpent, v.Notes,
			}); err != nil {
				return nil, err
			}
			visitRow++
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(header []string) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}

func dateCell(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
