// Package sheet reads and writes the xlsx files the credit book is kept in.
// The column contract follows the operator spreadsheets: capitalized Spanish
// headers, lenient cells, and a color-coded status column on export.
package sheet

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// Recognized column headers, after normalization.
const (
	ColFecha           = "Fecha"
	ColCliente         = "Cliente"
	ColValor           = "Valor"
	ColTipoDePago      = "Tipo de pago"
	ColProximoPago     = "Próximo pago"
	ColPagosRealizados = "Pagos realizados"
	ColSaldoRestante   = "Saldo restante"
	ColEstatus         = "Estatus"
)

// Header is the canonical column order used on export.
var Header = []string{
	ColFecha,
	ColCliente,
	ColValor,
	ColTipoDePago,
	ColProximoPago,
	ColPagosRealizados,
	ColSaldoRestante,
	ColEstatus,
}

// normalizeHeader trims and capitalizes a raw header cell so "  TIPO DE
// PAGO " and "tipo de pago" both resolve to "Tipo de pago".
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"01-02-06",
	time.RFC3339,
}

// ParseDate parses a date cell leniently, trying the layouts seen in
// operator files plus raw Excel serial numbers. It returns nil for
// anything unparseable; a corrupt date degrades the row, it never aborts
// the import.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// normalizeAmount prepares a money cell for decimal parsing: trims, strips
// spaces and treats a comma as the decimal separator.
func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return s
}
