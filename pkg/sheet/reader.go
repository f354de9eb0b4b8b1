package sheet

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mcclellann/creditos/pkg/engine"
	"github.com/mcclellann/creditos/pkg/models"
)

// RowIssue flags one spreadsheet row that could not become a credit. The
// rest of the file still loads.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Read loads credits from the first sheet of an xlsx file.
//
// The header row is normalized and unknown columns are ignored. Missing
// optional cells get the documented defaults: frequency diario, payments 0,
// origin date today. Unparseable dates become unset (the row classifies as
// "Sin fecha") and unknown frequencies fall back to daily — partial data
// never blocks the load. Only impossible values (empty client, non-numeric
// or negative principal) flag the row; flagged rows are reported with their
// 1-based row number and excluded. "Saldo restante" and "Estatus" are
// ignored on input and recomputed.
func Read(r io.Reader, today time.Time) ([]*models.Credit, []RowIssue, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Error() != nil {
			return nil, nil, rows.Error()
		}
		return nil, nil, nil
	}
	rawHeader, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		header[i] = normalizeHeader(h)
	}

	var (
		credits []*models.Credit
		issues  []RowIssue
	)
	rowNum := 1
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns()
		if err != nil {
			issues = append(issues, RowIssue{Row: rowNum, Reason: err.Error()})
			continue
		}
		row := cellMap(header, cols)

		c, err := creditFromRow(row, today)
		if err != nil {
			issues = append(issues, RowIssue{Row: rowNum, Reason: err.Error()})
			continue
		}
		credits = append(credits, c)
	}
	if err := rows.Error(); err != nil {
		return credits, issues, err
	}
	return credits, issues, nil
}

func creditFromRow(row map[string]string, today time.Time) (*models.Credit, error) {
	principal, err := decimal.NewFromString(normalizeAmount(row[ColValor]))
	if err != nil {
		return nil, models.ValidationError{Field: "Valor", Reason: "not a number: " + row[ColValor]}
	}

	paid, err := decimal.NewFromString(normalizeAmount(row[ColPagosRealizados]))
	if err != nil || paid.IsNegative() {
		paid = decimal.Zero
	}

	// A file without a Fecha column defaults every origin to today; a
	// present but empty or corrupt cell stays unset and the row reads as
	// "Sin fecha".
	var origin *time.Time
	if raw, ok := row[ColFecha]; ok {
		origin = ParseDate(raw)
	} else {
		d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		origin = &d
	}

	return engine.NewCredit(engine.CreditInput{
		Client:      row[ColCliente],
		Principal:   principal,
		Frequency:   models.NormalizeFrequency(row[ColTipoDePago]),
		OriginDate:  origin,
		PaidToDate:  paid,
		NextDueDate: ParseDate(row[ColProximoPago]),
	}, today)
}

func cellMap(header, cols []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(cols) {
			row[name] = cols[i]
		} else {
			row[name] = ""
		}
	}
	return row
}
