package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMimeType(t *testing.T) {
	assert.Equal(t, MimePDF, ResolveMimeType("application/pdf", "x.csv"))
	assert.Equal(t, MimeCSV, ResolveMimeType("", "datos.CSV"))
	assert.Equal(t, MimeXLSX, ResolveMimeType(MimeOctet, "libro.xlsx"))
	assert.Equal(t, MimeHTML, ResolveMimeType(MimeOctet, "correo.htm"))
	assert.Equal(t, MimeOctet, ResolveMimeType(MimeOctet, "archivo.bin"))
	assert.Equal(t, MimeHTML, ResolveMimeType("Text/HTML; charset=utf-8", ""))
}

func TestFormatOf(t *testing.T) {
	cases := []struct {
		mime, name string
		want       format
	}{
		{MimePlain, "movs.csv", formatCSV},
		{MimePlain, "notas.txt", formatUnknown},
		{MimeJPG, "foto", formatImage},
		{"application/zip", "estado.pdf", formatPDF},
		{MimeXLS, "viejo.xls", formatXLS},
		{"", "", formatUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatOf(c.mime, c.name), "%s %s", c.mime, c.name)
	}
}

func TestAllowedFile(t *testing.T) {
	for _, name := range []string{"a.pdf", "B.JPG", "c.jpeg", "d.png", "e.csv", "f.xlsx", "g.xls", "h.html", "i.htm"} {
		assert.True(t, AllowedFile(name), name)
	}
	for _, name := range []string{"a.exe", "b.txt", "sin_extension", "c.pdf.zip"} {
		assert.False(t, AllowedFile(name), name)
	}
	assert.True(t, IsSupportedMime("image/png"))
	assert.False(t, IsSupportedMime("application/zip"))
}
