// Package importer reads expense spreadsheets, such as the CSV export or a
// hand-kept sheet with the same columns, and turns them into ledger commands.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/kinshukkush/smartsplit/internal/encoding"
)

// Column names, matched case-insensitively.
const (
	colDate         = "date"
	colTitle        = "title"
	colAmount       = "amount"
	colCurrency     = "currency"
	colCategory     = "category"
	colPaidBy       = "paid by"
	colParticipants = "participants"
	colSettled      = "settled"
)

var requiredCols = []string{colDate, colTitle, colAmount, colPaidBy, colParticipants}

var dateLayouts = []string{time.DateOnly, "02-01-2006", "02/01/2006", time.RFC3339}

// Row is one expense line of a sheet. Names are kept as written; Commands
// resolves them against the ledger.
type Row struct {
	Line         int
	Date         time.Time
	Title        string
	Amount       decimal.Decimal
	Currency     string
	Category     string
	PaidBy       []string
	Participants []string
	Settled      bool
}

// Parse reads a sheet in any text encoding, separated by commas or
// semicolons. Rows before the header and rows without a date are skipped.
func Parse(r io.Reader) ([]Row, error) {
	utf8r, _, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectComma(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerIdx, ok := detectHeader(rows)
	if !ok {
		return nil, fmt.Errorf("no header found: expected columns %s", strings.Join(requiredCols, ", "))
	}

	return parseRows(cols, rows[headerIdx+1:], headerIdx+1)
}

// detectComma picks the separator that occurs more often on the first line.
func detectComma(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))

	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}

	return ','
}

// colIndex maps lowercased column names to their index in the row.
type colIndex map[string]int

func detectHeader(rows [][]string) (colIndex, int, bool) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		if hasAll(cols, requiredCols) {
			return cols, rowIdx, true
		}
	}

	return nil, 0, false
}

func hasAll(cols colIndex, names []string) bool {
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows converts data rows. headerRowNum is the 1-based line of the
// header, for error messages.
func parseRows(cols colIndex, rows [][]string, headerRowNum int) ([]Row, error) {
	var out []Row

	for i, row := range rows {
		rowNum := headerRowNum + i + 1 // 1-based

		date, ok := parseDate(cellValue(row, cols, colDate))
		if !ok {
			continue
		}

		title := cellValue(row, cols, colTitle)
		if title == "" {
			return nil, fmt.Errorf("row %d: missing title", rowNum)
		}

		amount, err := parseAmount(cellValue(row, cols, colAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount: %w", rowNum, err)
		}

		if !amount.IsPositive() {
			return nil, fmt.Errorf("row %d: amount must be positive", rowNum)
		}

		paidBy := splitNames(cellValue(row, cols, colPaidBy))
		if len(paidBy) == 0 {
			return nil, fmt.Errorf("row %d: missing payer", rowNum)
		}

		participants := splitNames(cellValue(row, cols, colParticipants))
		if len(participants) == 0 {
			return nil, fmt.Errorf("row %d: missing participants", rowNum)
		}

		out = append(out, Row{
			Line:         rowNum,
			Date:         date,
			Title:        title,
			Amount:       amount,
			Currency:     strings.ToUpper(cellValue(row, cols, colCurrency)),
			Category:     cellValue(row, cols, colCategory),
			PaidBy:       paidBy,
			Participants: participants,
			Settled:      parseBool(cellValue(row, cols, colSettled)),
		})
	}

	return out, nil
}

// parseDate returns false for empty cells and footer rows.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1", "x":
		return true
	}

	return false
}

func splitNames(s string) []string {
	var names []string

	for _, part := range strings.Split(s, ";") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// cellValue returns the trimmed cell of the named column, or "" when the
// column or cell is absent.
func cellValue(row []string, cols colIndex, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
