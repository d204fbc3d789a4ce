package pipeline

import (
	"path/filepath"
	"strings"
)

const (
	MimePDF   = "application/pdf"
	MimeJPEG  = "image/jpeg"
	MimeJPG   = "image/jpg"
	MimePNG   = "image/png"
	MimeCSV   = "text/csv"
	MimeHTML  = "text/html"
	MimeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXLS   = "application/vnd.ms-excel"
	MimePlain = "text/plain"
	MimeOctet = "application/octet-stream"
)

var supportedMimes = map[string]struct{}{
	MimePDF: {}, MimeJPEG: {}, MimeJPG: {}, MimePNG: {}, MimeCSV: {},
	MimeHTML: {}, MimeXLSX: {}, MimeXLS: {}, MimePlain: {},
}

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".jpeg": {}, ".jpg": {}, ".png": {}, ".csv": {},
	".xlsx": {}, ".xls": {}, ".html": {}, ".htm": {},
}

var mimeByExtension = map[string]string{
	".pdf":  MimePDF,
	".jpeg": MimeJPEG,
	".jpg":  MimeJPEG,
	".png":  MimePNG,
	".csv":  MimeCSV,
	".xlsx": MimeXLSX,
	".xls":  MimeXLS,
	".html": MimeHTML,
	".htm":  MimeHTML,
}

// AllowedFile reports whether filename carries an accepted extension.
func AllowedFile(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func IsSupportedMime(mime string) bool {
	_, ok := supportedMimes[baseMime(mime)]
	return ok
}

// ResolveMimeType trusts a declared type unless it is missing or generic, in
// which case the extension decides.
func ResolveMimeType(mime, filename string) string {
	m := baseMime(mime)
	if m != "" && m != MimeOctet {
		return m
	}
	if byExt, ok := mimeByExtension[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return m
}

type format int

const (
	formatUnknown format = iota
	formatPDF
	formatImage
	formatHTML
	formatCSV
	formatXLSX
	formatXLS
)

func (f format) textBearing() bool {
	return f == formatPDF || f == formatImage || f == formatHTML
}

func (f format) tabular() bool {
	return f == formatCSV || f == formatXLSX || f == formatXLS
}

// formatOf picks the reader for a document. A declared type no reader handles
// falls back to the extension.
func formatOf(mime, filename string) format {
	if f := formatOfMime(ResolveMimeType(mime, filename), filename); f != formatUnknown {
		return f
	}
	return formatOfMime(ResolveMimeType("", filename), filename)
}

func formatOfMime(m, filename string) format {
	switch {
	case m == MimePDF:
		return formatPDF
	case strings.HasPrefix(m, "image/"):
		return formatImage
	case m == MimeHTML:
		return formatHTML
	case m == MimeCSV:
		return formatCSV
	case m == MimePlain && strings.EqualFold(filepath.Ext(filename), ".csv"):
		return formatCSV
	case m == MimeXLSX:
		return formatXLSX
	case m == MimeXLS:
		return formatXLS
	default:
		return formatUnknown
	}
}

func baseMime(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

func imageExt(mime, filename string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if baseMime(mime) == MimePNG {
		return ".png"
	}
	return ".jpg"
}
