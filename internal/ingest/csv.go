// Package ingest parses broker fill exports into the journal. Broker
// CSV headers drift between export versions, so the parser canonicalizes
// the header row before decoding and derives each fill's identity from
// row content, keeping re-imports idempotent.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "tradovate-journal/internal/errors"
	"tradovate-journal/internal/models"
)

// csvRow mirrors one canonicalized export row.
type csvRow struct {
	OrderID  string `csv:"orderid"`
	Account  string `csv:"account"`
	Contract string `csv:"contract"`
	Side     string `csv:"bs"`
	Quantity string `csv:"filledqty"`
	Price    string `csv:"avgprice"`
	FillTime string `csv:"filltime"`
	Status   string `csv:"status"`
}

// headerAliases maps stripped header names to the canonical column.
// Keys are headers lowered with spaces, underscores and slashes removed.
var headerAliases = map[string]string{
	"orderid":      "orderid",
	"id":           "orderid",
	"account":      "account",
	"contract":     "contract",
	"symbol":       "contract",
	"product":      "contract",
	"instrument":   "contract",
	"bs":           "bs",
	"side":         "bs",
	"buysell":      "bs",
	"filledqty":    "filledqty",
	"qty":          "filledqty",
	"quantity":     "filledqty",
	"avgprice":     "avgprice",
	"avgfillprice": "avgprice",
	"price":        "avgprice",
	"fillprice":    "avgprice",
	"filltime":     "filltime",
	"timestamp":    "filltime",
	"time":         "filltime",
	"date":         "filltime",
	"status":       "status",
}

// timeLayouts are tried in order against export timestamps.
var timeLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// Parser converts broker CSV exports into fills.
type Parser struct {
	loc            *time.Location
	defaultAccount string
}

// NewParser creates a CSV parser. Naive export timestamps are interpreted
// in loc; rows without an account column get defaultAccount.
func NewParser(loc *time.Location, defaultAccount string) *Parser {
	return &Parser{loc: loc, defaultAccount: defaultAccount}
}

// Result holds the outcome of one parse.
type Result struct {
	Fills []*models.Fill
	// Skipped holds per-row errors for rows that could not be converted.
	// A bad row never aborts the parse.
	Skipped []*apperrors.FillError
}

// ParseFile parses one export file.
func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse parses an export stream. The header row is canonicalized first so
// that any known export variant decodes into the same columns.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	canonical, err := canonicalizeHeader(r)
	if err != nil {
		return nil, err
	}

	var rows []*csvRow
	if err := gocsv.UnmarshalString(canonical, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	result := &Result{}
	seen := make(map[string]int)
	for i, row := range rows {
		// Row 1 is the header.
		rowNum := i + 2
		fill, ferr := p.convertRow(row, rowNum)
		if ferr != nil {
			result.Skipped = append(result.Skipped, ferr)
			continue
		}
		// Content-identical rows collapse to one fill. The store would
		// dedupe them anyway; skipping here surfaces the repeat to the
		// importer.
		if firstRow, ok := seen[fill.ID]; ok {
			result.Skipped = append(result.Skipped, apperrors.NewFillError(
				fill.ID, rowNum, fmt.Sprintf("repeats row %d", firstRow), apperrors.ErrDuplicateFill))
			continue
		}
		seen[fill.ID] = rowNum
		result.Fills = append(result.Fills, fill)
	}
	return result, nil
}

func (p *Parser) convertRow(row *csvRow, rowNum int) (*models.Fill, *apperrors.FillError) {
	side, ok := models.ParseSide(strings.TrimSpace(row.Side))
	if !ok {
		return nil, apperrors.NewFillError("", rowNum, fmt.Sprintf("side %q", row.Side), apperrors.ErrUnknownSide)
	}

	qty, err := parseInt(row.Quantity)
	if err != nil {
		return nil, apperrors.NewFillError("", rowNum, fmt.Sprintf("quantity %q", row.Quantity), err)
	}
	if qty <= 0 {
		return nil, apperrors.NewFillError("", rowNum, fmt.Sprintf("quantity %d", qty), apperrors.ErrInvalidQuantity)
	}

	price, err := parseFloat(row.Price)
	if err != nil {
		return nil, apperrors.NewFillError("", rowNum, fmt.Sprintf("price %q", row.Price), err)
	}

	fillTime, err := p.parseTime(row.FillTime)
	if err != nil {
		return nil, apperrors.NewFillError("", rowNum, fmt.Sprintf("fill time %q", row.FillTime), err)
	}

	account := strings.TrimSpace(row.Account)
	if account == "" {
		account = p.defaultAccount
	}
	instrument := strings.TrimSpace(row.Contract)
	if instrument == "" {
		return nil, apperrors.NewFillError("", rowNum, "missing contract", apperrors.ErrMissingInstrument)
	}

	status := strings.TrimSpace(row.Status)
	if status == "" {
		status = models.StatusFilled
	}

	orderID := strings.TrimSpace(row.OrderID)
	fill := &models.Fill{
		ID:         models.StableFillID(models.FillContentFields(account, instrument, side, qty, price, fillTime, orderID)),
		OrderID:    orderID,
		Account:    account,
		Instrument: instrument,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		FillTime:   fillTime,
		Status:     status,
	}
	return fill, nil
}

func (p *Parser) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperrors.ErrMissingTimestamp
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
}

func parseInt(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.Atoi(s)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

// canonicalizeHeader reads the whole CSV and rewrites the header row to
// canonical column names. Unknown columns keep a name no struct field
// carries, so the decoder ignores them.
func canonicalizeHeader(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read export: %w", err)
	}
	if len(records) == 0 {
		return "", apperrors.ErrEmptyExport
	}

	header := records[0]
	for i, col := range header {
		stripped := strings.ToLower(strings.TrimSpace(col))
		stripped = strings.NewReplacer(" ", "", "_", "", "/", "", "-", "").Replace(stripped)
		if canonical, ok := headerAliases[stripped]; ok {
			header[i] = canonical
		} else {
			header[i] = "ignored" + strconv.Itoa(i)
		}
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("failed to rewrite export: %w", err)
	}
	w.Flush()
	return sb.String(), nil
}
