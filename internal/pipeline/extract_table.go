package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"lectorgastos/internal"
	"lectorgastos/internal/util"
)

type column int

const (
	colFecha column = iota
	colMonto
	colConcepto
	colCategoria
	colTipo
)

// columnRule maps a header to a field when the folded header contains one of
// its probes. Rules are matched in order and each field takes the first
// matching column.
type columnRule struct {
	Field  column
	Probes []string
}

var columnRules = []columnRule{
	{Field: colFecha, Probes: []string{"fecha", "date"}},
	{Field: colMonto, Probes: []string{"monto", "total", "amount", "importe"}},
	{Field: colConcepto, Probes: []string{"concepto", "descripcion", "detalle", "concept"}},
	{Field: colCategoria, Probes: []string{"categoria", "category"}},
	{Field: colTipo, Probes: []string{"tipo", "type"}},
}

type columnIndex map[column]int

func (ci columnIndex) cell(row []string, field column) (string, bool) {
	idx, ok := ci[field]
	if !ok {
		return "", false
	}
	if idx < len(row) {
		return strings.TrimSpace(row[idx]), true
	}
	return "", true
}

func inferColumns(header []string) columnIndex {
	folded := make([]string, 0, len(header))
	for _, h := range header {
		folded = append(folded, util.Fold(strings.TrimSpace(h)))
	}
	ci := columnIndex{}
	for _, rule := range columnRules {
		if idx := findHeaderIndex(folded, rule.Probes); idx >= 0 {
			ci[rule.Field] = idx
		}
	}
	return ci
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

// extractTable reads one item per data row. The first row is always the header.
// It returns nil when no row carries an amount or a description.
func extractTable(t table, now time.Time) []internal.ExtractedItem {
	if len(t.rows) < 2 {
		return nil
	}
	ci := inferColumns(t.rows[0])

	out := []internal.ExtractedItem{}
	for _, row := range t.rows[1:] {
		item := internal.ExtractedItem{
			Fecha:  rowDate(ci, row, t.native, now),
			Monto:  rowAmount(ci, row),
			Tipo:   internal.TipoGasto,
			Source: internal.SourceTable,
		}

		concepto, ok := ci.cell(row, colConcepto)
		if !ok {
			concepto = strings.TrimSpace(strings.Join(row, " "))
		}
		if concepto == "" {
			concepto = internal.SinConcepto
		}
		item.Concepto = concepto

		if !item.Monto.IsPositive() && item.Concepto == internal.SinConcepto {
			continue
		}
		if categoria, ok := ci.cell(row, colCategoria); ok {
			item.Categoria = categoria
		}
		if tipo, ok := ci.cell(row, colTipo); ok && strings.Contains(util.Fold(tipo), string(internal.TipoIngreso)) {
			item.Tipo = internal.TipoIngreso
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func rowDate(ci columnIndex, row []string, native bool, now time.Time) time.Time {
	value, ok := ci.cell(row, colFecha)
	if !ok || value == "" {
		return now
	}
	if d, ok := util.ParseDate(value); ok {
		return d
	}
	if native {
		if d, ok := excelSerialDate(value); ok {
			return d
		}
	}
	return now
}

func rowAmount(ci columnIndex, row []string) decimal.Decimal {
	value, ok := ci.cell(row, colMonto)
	if !ok {
		for _, c := range row {
			if util.LooksLikeAmount(c) {
				value = c
				break
			}
		}
	}
	if monto, ok := util.ParseAmount(value); ok {
		return monto
	}
	return decimal.Zero
}

// excelSerialDate converts a workbook serial day number into a calendar date.
func excelSerialDate(value string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// joinRows flattens a table back into text, one row per line.
func joinRows(t table) string {
	lines := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, "\n")
}
