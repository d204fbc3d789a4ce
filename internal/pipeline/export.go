package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"lectorgastos/internal"
	"lectorgastos/internal/categorize"
)

const ExportSheet = "Gastos"

var exportHeaders = []string{"Fecha", "Tipo", "Monto (MXN)", "Concepto", "Categoría", "Archivo"}

// ExportFileName is the attachment name for an export made at now.
func ExportFileName(now time.Time) string {
	return "gastos-" + now.UTC().Format("2006-01-02") + ".xlsx"
}

func buildExport(expenses []internal.Expense) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ExportSheet, cell, h)
	}

	for i, e := range expenses {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(ExportSheet, cell, value)
		}

		set(1, formatFecha(e.Fecha))
		set(2, tipoLabel(e.Tipo))
		set(3, e.Monto.InexactFloat64())
		set(4, e.Concepto)
		set(5, firstNonEmpty(e.Categoria, categorize.Default))
		set(6, e.Archivo)
	}
	return f, nil
}

// ExportExpensesToXLSX writes expenses, already in display order, as a workbook.
func ExportExpensesToXLSX(w io.Writer, expenses []internal.Expense) error {
	f, err := buildExport(expenses)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func ExportExpensesToFile(expenses []internal.Expense, outputPath string) error {
	f, err := buildExport(expenses)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func formatFecha(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func tipoLabel(t internal.Tipo) string {
	if t == internal.TipoIngreso {
		return "Ingreso"
	}
	return "Gasto"
}
