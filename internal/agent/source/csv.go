package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

const bom = "\ufeff"

// columnAliases maps every accepted header to its invoice field.
var columnAliases = map[string]string{
	"invoice_id":   "id",
	"invoice id":   "id",
	"id":           "id",
	"vendor":       "vendor",
	"date":         "date",
	"line_items":   "item",
	"line items":   "item",
	"item":         "item",
	"total_amount": "amount",
	"total amount": "amount",
	"amount":       "amount",
	"currency":     "currency",
	"status":       "status",
	"metadata":     "metadata",
}

// LoadCSV reads invoices from a CSV file.
func LoadCSV(path string) ([]model.Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.New(fmt.Errorf("open %s: %w", path, err), errx.KindConfig, "cannot read invoices file")
	}
	defer f.Close()

	invoices, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logx.Info().Str("path", path).Int("invoices", len(invoices)).Msg("invoices loaded")
	return invoices, nil
}

// ReadCSV parses invoices from r. The header row is required; unknown
// columns are ignored and rows carrying neither an id nor a vendor are skipped.
func ReadCSV(r io.Reader) ([]model.Invoice, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(cleanLines(string(raw))))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := mapHeader(header)
	if _, ok := columns["id"]; !ok {
		if _, ok := columns["vendor"]; !ok {
			return nil, fmt.Errorf("header has neither an invoice id nor a vendor column")
		}
	}

	var invoices []model.Invoice
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		inv, ok, err := toInvoice(record, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			logx.Warn().Int("line", line).Msg("skipping row without invoice id or vendor")
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// cleanLines strips the BOM and surrounding whitespace, and unwraps rows that
// a spreadsheet export quoted as a single field. Line numbering is preserved.
func cleanLines(s string) string {
	s = strings.TrimPrefix(s, bom)
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 1 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) && strings.Contains(line, ",") &&
			!strings.Contains(line[1:len(line)-1], `","`) {
			line = strings.ReplaceAll(line[1:len(line)-1], `""`, `"`)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, bom, "")
	h = strings.ReplaceAll(h, `"`, "")
	return strings.ToLower(strings.TrimSpace(h))
}

// mapHeader returns field name -> column index. The first matching column wins.
func mapHeader(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		field, ok := columnAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}
	return columns
}

func toInvoice(record []string, columns map[string]int) (model.Invoice, bool, error) {
	get := func(field string) string {
		i, ok := columns[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	inv := model.Invoice{
		ID:       get("id"),
		Vendor:   get("vendor"),
		Date:     get("date"),
		Item:     get("item"),
		Currency: get("currency"),
		Status:   get("status"),
		Metadata: get("metadata"),
	}
	if inv.ID == "" && inv.Vendor == "" {
		return model.Invoice{}, false, nil
	}

	amount, err := parseAmount(get("amount"))
	if err != nil {
		return model.Invoice{}, false, err
	}
	inv.Amount = amount
	return inv, true, nil
}

// parseAmount accepts plain decimals as well as "$1,200.50" style values.
// A missing amount is zero.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", raw)
	}
	return d, nil
}
