package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectorgastos/internal"
)

func TestExtractLines(t *testing.T) {
	items := extractLines("Ticket OXXO\nLeche 32,50\n  Pan dulce 1.234,56  \n$ 10\n", testNow)
	require.Len(t, items, 3)

	assert.Equal(t, "Leche", items[0].Concepto)
	assert.Equal(t, "32.5", items[0].Monto.String())
	assert.Equal(t, "Leche 32,50", items[0].TextoOriginal)

	assert.Equal(t, "Pan dulce", items[1].Concepto)
	assert.Equal(t, "1234.56", items[1].Monto.String())

	assert.Equal(t, "Concepto 3", items[2].Concepto)
	for _, item := range items {
		assert.Equal(t, testNow, item.Fecha)
		assert.Equal(t, internal.SourceText, item.Source)
	}
}

func TestExtractLinesSkipsLongLinesAndTruncates(t *testing.T) {
	long := strings.Repeat("x", 501) + " 10"
	concept := strings.Repeat("é", 250)
	items := extractLines(long+"\n"+concept+" 99", testNow)
	require.Len(t, items, 1)
	assert.Equal(t, strings.Repeat("é", 200), items[0].Concepto)
}

func TestExtractLinesUsesDocumentDate(t *testing.T) {
	items := extractLines("Estado de cuenta 17 feb. 2026\nComisión anual 500", testNow)
	require.NotEmpty(t, items)
	for _, item := range items {
		assert.Equal(t, day(2026, time.February, 17), item.Fecha)
	}
}

func TestExtractSingle(t *testing.T) {
	item := extractSingle("12/03/2026\n$ 99.90\nRecibo de luz CFE\n3 x 49500 = 148500", testNow)
	assert.Equal(t, day(2026, time.March, 12), item.Fecha)
	assert.Equal(t, "148500", item.Monto.String())
	assert.Equal(t, "Recibo de luz CFE", item.Concepto)

	item = extractSingle("", testNow)
	assert.Equal(t, internal.SinConcepto, item.Concepto)
	assert.True(t, item.Monto.IsZero())
	assert.Equal(t, testNow, item.Fecha)

	item = extractSingle("2026\n450", testNow)
	assert.Equal(t, "2026", item.Concepto)
}

func TestFindDateKeepsTokensWhole(t *testing.T) {
	text := strings.Repeat("a", 140) + " 17/02/2026 fin"
	d, ok := findDate(text)
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 17), d)

	text = strings.Repeat("sin fecha ", 300) + "01/01/2027"
	d, ok = findDate(text)
	require.True(t, ok)
	assert.Equal(t, day(2027, time.January, 1), d)

	text = strings.Repeat("a", 145) + "17/02/2026"
	d, ok = findDate(text)
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 17), d)

	_, ok = findDate("sin fechas aquí")
	assert.False(t, ok)
}

func TestFindDateOnLongUnbrokenText(t *testing.T) {
	text := strings.Repeat("Ab1$", 50_000)
	start := time.Now()
	_, ok := findDate(text)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)

	d, ok := findDate(text + "17/02/2026")
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 17), d)
}

func TestExtractEmptyTextIsPlaceholder(t *testing.T) {
	p := newTestProcessor(nil, nil)
	items, err := p.Extract(context.Background(), internal.RawDocument{Content: nil, MimeType: MimePlain, FileName: "nota.txt"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, internal.SinConcepto, items[0].Concepto)
	assert.True(t, items[0].Monto.IsZero())
	assert.Equal(t, "Otros", items[0].Categoria)
}

func TestExtractEmptyCSVIsPlaceholder(t *testing.T) {
	p := newTestProcessor(nil, nil)
	items, err := p.Extract(context.Background(), internal.RawDocument{Content: []byte("\n\n"), MimeType: MimeCSV, FileName: "vacio.csv"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, internal.SourceFallback, items[0].Source)
	assert.Equal(t, testNow, items[0].Fecha)
}

func TestReadHTMLText(t *testing.T) {
	text, err := readHTMLText([]byte(`<html><head><title>t</title><style>p{}</style></head><body>
<p>Ticket   de
 compra</p><table><tr><td>Leche</td><td>32,50</td></tr><tr><td>Pan</td><td>18</td></tr></table>
<script>var x = 1;</script></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Ticket de compra Leche 32,50 Pan 18", text)
}

func TestHTMLReceiptIsOneItemWithLargestAmount(t *testing.T) {
	p := newTestProcessor(nil, nil)
	items, err := p.Extract(context.Background(), internal.RawDocument{
		Content:  []byte(`<table><tr><td>Leche</td><td>32.50</td></tr><tr><td>Pan</td><td>18.00</td></tr><tr><td>Total</td><td>50.50</td></tr></table>`),
		MimeType: MimeHTML,
		FileName: "ticket.html",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "50.5", items[0].Monto.String())
	assert.Equal(t, "Leche Pan Total", items[0].Concepto)
}
