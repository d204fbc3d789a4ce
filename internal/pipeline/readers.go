package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"lectorgastos/internal/util"
)

// TextRecognizer reads text out of an image.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte, ext string) (string, error)
}

// table holds spreadsheet rows. native is set when cells come from a workbook,
// where a bare number in a date column is a serial date.
type table struct {
	rows   [][]string
	native bool
}

func readPDFText(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = readFailed("PDF", fmt.Errorf("panic: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", readFailed("PDF", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// readHTMLText drops tags, scripts and styles and collapses all whitespace,
// line breaks included, into single spaces.
func readHTMLText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", readFailed("HTML", err)
	}
	doc.Find("script,style,noscript,head").Remove()

	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				b.WriteString(c.Text())
				b.WriteString(" ")
				return
			}
			walk(c)
			b.WriteString(" ")
		})
	}
	walk(doc.Selection)

	return util.NormalizeSpaces(b.String()), nil
}

func readImageText(ctx context.Context, ocr TextRecognizer, content []byte, mime, filename string) (string, error) {
	if ocr == nil {
		return "", readFailed("de imagen", fmt.Errorf("ocr not configured"))
	}
	text, err := ocr.Recognize(ctx, content, imageExt(mime, filename))
	if err != nil {
		return "", readFailed("de imagen", err)
	}
	return text, nil
}

func readCSVRows(content []byte) (table, error) {
	text := decodeText(content)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows := [][]string{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table{}, readFailed("CSV", err)
		}
		rows = appendRow(rows, record)
	}
	return table{rows: rows}, nil
}

// decodeText returns content as UTF-8. Bytes that are not valid UTF-8 are read
// as Windows-1252, the usual encoding of spreadsheet-exported CSV files.
func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if utf8.Valid(content) {
		return string(content)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}

func sniffDelimiter(text string) rune {
	first := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		first = text[:i]
	}
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}

func readXLSXRows(content []byte) (table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return table{}, readFailed("Excel", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table{native: true}, nil
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return table{}, readFailed("Excel", err)
	}

	rows := [][]string{}
	for _, row := range raw {
		rows = appendRow(rows, row)
	}
	return table{rows: rows, native: true}, nil
}

func readXLSRows(content []byte) (t table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = readFailed("Excel", fmt.Errorf("panic: %v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return table{}, readFailed("Excel", err)
	}
	if wb.NumSheets() == 0 {
		return table{native: true}, nil
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return table{native: true}, nil
	}

	rows := [][]string{}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = appendRow(rows, cells)
	}
	return table{rows: rows, native: true}, nil
}

// readWorkbook picks the reader by content: files declared as .xls are often
// OOXML zips in disguise.
func readWorkbook(content []byte, declared format, filename string) (table, error) {
	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		return readXLSXRows(content)
	}
	if declared == formatXLS || strings.EqualFold(filepath.Ext(filename), ".xls") {
		return readXLSRows(content)
	}
	return readXLSXRows(content)
}

func appendRow(rows [][]string, cells []string) [][]string {
	out := make([]string, 0, len(cells))
	blank := true
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c != "" {
			blank = false
		}
		out = append(out, c)
	}
	if blank {
		return rows
	}
	return append(rows, out)
}
