package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lectorgastos/internal"
	"lectorgastos/internal/ai"
	"lectorgastos/internal/categorize"
	"lectorgastos/internal/storage"
)

// Interpreter is the model-backed side of the pipeline. Both calls return nil
// when they have nothing to offer.
type Interpreter interface {
	DocumentInterpreter
	InterpretLines(ctx context.Context, lines []string) []ai.LineResult
}

type Processor struct {
	db  *storage.DB
	ai  Interpreter
	ocr TextRecognizer
	log zerolog.Logger
	now func() time.Time
}

func NewProcessor(db *storage.DB, interpreter Interpreter, ocr TextRecognizer, log zerolog.Logger) *Processor {
	return &Processor{db: db, ai: interpreter, ocr: ocr, log: log, now: time.Now}
}

// Extract turns one document into normalized items. It never returns an empty
// list without an error.
func (p *Processor) Extract(ctx context.Context, raw internal.RawDocument) ([]internal.ExtractedItem, error) {
	now := p.now()
	mime := ResolveMimeType(raw.MimeType, raw.FileName)
	f := formatOf(raw.MimeType, raw.FileName)
	if f == formatUnknown && !IsSupportedMime(mime) && !AllowedFile(raw.FileName) {
		return nil, &ExtractionError{Code: CodeUnsupportedType, Message: "tipo de archivo no soportado: " + mime}
	}

	doc, err := p.read(ctx, raw, f, now)
	if err != nil {
		return nil, err
	}

	items, strategy := p.chainFor(f).Run(ctx, doc)
	if len(items) == 0 {
		items = []internal.ExtractedItem{placeholder(now)}
		strategy = string(internal.SourceFallback)
	}
	p.log.Debug().Str("file", raw.FileName).Str("mime", mime).Str("strategy", strategy).Int("items", len(items)).Msg("document extracted")

	return p.enrich(ctx, items), nil
}

func (p *Processor) read(ctx context.Context, raw internal.RawDocument, f format, now time.Time) (document, error) {
	doc := document{format: f, now: now}
	var err error
	switch f {
	case formatPDF:
		doc.text, err = readPDFText(raw.Content)
	case formatImage:
		doc.text, err = readImageText(ctx, p.ocr, raw.Content, raw.MimeType, raw.FileName)
	case formatHTML:
		doc.text, err = readHTMLText(raw.Content)
	case formatCSV:
		doc.table, err = readCSVRows(raw.Content)
	case formatXLSX, formatXLS:
		doc.table, err = readWorkbook(raw.Content, f, raw.FileName)
	default:
		doc.text = decodeText(raw.Content)
	}
	return doc, err
}

// enrich asks the model to re-read every item unless all of them already carry
// a category, then merges both readings.
func (p *Processor) enrich(ctx context.Context, items []internal.ExtractedItem) []internal.ExtractedItem {
	var lines []ai.LineResult
	if p.ai != nil && !allCategorized(items) {
		lines = p.ai.InterpretLines(ctx, lineTexts(items))
	}

	out := make([]internal.ExtractedItem, 0, len(items))
	for i, item := range items {
		var line *ai.LineResult
		if i < len(lines) {
			line = &lines[i]
		}
		out = append(out, mergeItem(item, line))
	}
	return out
}

func allCategorized(items []internal.ExtractedItem) bool {
	for _, item := range items {
		if strings.TrimSpace(item.Categoria) == "" {
			return false
		}
	}
	return true
}

func lineTexts(items []internal.ExtractedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		text := item.TextoOriginal
		if text == "" {
			text = strings.TrimSpace(item.Concepto + " " + item.Monto.String())
		}
		if text == "" {
			text = internal.SinConcepto
		}
		out = append(out, text)
	}
	return out
}

// mergeItem combines the heuristic reading with the model's line reading. The
// model wins on amounts, the heuristic wins on categories and either side can
// mark an item as income.
func mergeItem(item internal.ExtractedItem, line *ai.LineResult) internal.ExtractedItem {
	if line != nil && line.Monto != nil && !line.Monto.IsNegative() {
		item.Monto = line.Monto.Round(2)
	}
	if item.Monto.IsNegative() {
		item.Monto = item.Monto.Abs()
	}

	categoria := strings.TrimSpace(item.Categoria)
	if categoria == "" && line != nil {
		categoria = strings.TrimSpace(line.Categoria)
	}
	if categoria == "" {
		categoria = categorize.Identify(item.Concepto, "")
	}
	item.Categoria = categoria

	if item.Tipo == internal.TipoIngreso || (line != nil && line.Tipo == internal.TipoIngreso) {
		item.Tipo = internal.TipoIngreso
	} else {
		item.Tipo = internal.TipoGasto
	}
	return item
}

// SaveUpload extracts a document and stores its items in order under sessionID.
// A failed write stops the loop; earlier writes stay.
func (p *Processor) SaveUpload(ctx context.Context, sessionID string, raw internal.RawDocument) ([]internal.Expense, error) {
	return p.save(ctx, sessionID, raw, nil)
}

func (p *Processor) save(ctx context.Context, sessionID string, raw internal.RawDocument, emailID *int) ([]internal.Expense, error) {
	start := time.Now()
	items, err := p.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	extractMs := float64(time.Since(start).Milliseconds())

	saved := make([]internal.Expense, 0, len(items))
	for _, item := range items {
		id, err := uuid.NewV7()
		if err != nil {
			return saved, fmt.Errorf("expense id: %w", err)
		}
		expense := internal.Expense{
			ID:            id.String(),
			SessionID:     sessionID,
			Fecha:         item.Fecha,
			Monto:         item.Monto,
			Tipo:          item.Tipo,
			Concepto:      item.Concepto,
			Categoria:     item.Categoria,
			Archivo:       raw.FileName,
			TextoExtraido: item.TextoOriginal,
			CreadoEn:      p.now(),
		}
		if err := p.db.InsertExpense(ctx, expense); err != nil {
			return saved, fmt.Errorf("save expense: %w", err)
		}
		saved = append(saved, expense)
	}

	run := storage.Run{
		TraceID:   traceID(),
		SessionID: sessionID,
		Archivo:   raw.FileName,
		EmailID:   emailID,
		Timings:   map[string]float64{"extractMs": extractMs, "totalMs": float64(time.Since(start).Milliseconds())},
		Counts:    map[string]int{"items": len(saved)},
	}
	if err := p.db.InsertRun(ctx, run); err != nil {
		p.log.Warn().Err(err).Str("trace", run.TraceID).Msg("run not recorded")
	}
	p.log.Info().Str("session", sessionID).Str("file", raw.FileName).Int("items", len(saved)).Str("trace", run.TraceID).Msg("document saved")

	return saved, nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
