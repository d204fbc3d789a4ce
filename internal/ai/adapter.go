package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lectorgastos/internal"
	"lectorgastos/internal/categorize"
	"lectorgastos/internal/config"
	"lectorgastos/internal/util"
)

const defaultMaxInputChars = 30000

// LineResult is the model's reading of one item line. Monto is nil when the
// model gave no usable amount.
type LineResult struct {
	Monto     *decimal.Decimal
	Categoria string
	Tipo      internal.Tipo
}

// Adapter is best-effort enrichment: every failure is logged and reported as nil.
// An Adapter without a Generator never calls out and always returns nil.
type Adapter struct {
	gen      Generator
	maxChars int
	log      zerolog.Logger
	now      func() time.Time
}

func NewAdapter(gen Generator, maxChars int, log zerolog.Logger) *Adapter {
	if maxChars <= 0 {
		maxChars = defaultMaxInputChars
	}
	return &Adapter{gen: gen, maxChars: maxChars, log: log, now: time.Now}
}

// NewAdapterFromConfig wires Gemini when a key is configured and returns a
// disabled adapter otherwise.
func NewAdapterFromConfig(ctx context.Context, cfg config.Config, log zerolog.Logger) *Adapter {
	if !cfg.AIEnabled() {
		log.Info().Msg("GEMINI_API_KEY not set, AI interpretation disabled")
		return NewAdapter(nil, cfg.GeminiMaxInputChars, log)
	}
	gen, err := NewGeminiGenerator(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("gemini unavailable, AI interpretation disabled")
		return NewAdapter(nil, cfg.GeminiMaxInputChars, log)
	}
	return NewAdapter(gen, cfg.GeminiMaxInputChars, log)
}

func (a *Adapter) Enabled() bool {
	return a != nil && a.gen != nil
}

// ExtractDocument asks the model for one item per movement in text.
func (a *Adapter) ExtractDocument(ctx context.Context, text string) []internal.ExtractedItem {
	if !a.Enabled() || strings.TrimSpace(text) == "" {
		return nil
	}

	raw, err := a.gen.Generate(ctx, documentPrompt(util.Truncate(text, a.maxChars)))
	if err != nil {
		a.log.Warn().Err(err).Str("stage", "document").Msg("ai call failed")
		return nil
	}
	objs, err := decodeObjects(raw)
	if err != nil {
		a.log.Warn().Err(err).Str("stage", "document").Msg("ai response discarded")
		return nil
	}

	items := make([]internal.ExtractedItem, 0, len(objs))
	for _, obj := range objs {
		if obj["concepto"] == nil && obj["monto"] == nil {
			continue
		}
		monto, _ := toAmount(obj["monto"])
		concepto := toString(obj["concepto"])
		if concepto == "" {
			concepto = internal.SinConcepto
		}
		fecha := a.now()
		if parsed, ok := util.ParseDate(toString(obj["fecha"])); ok {
			fecha = parsed
		}
		items = append(items, internal.ExtractedItem{
			Fecha:     fecha,
			Monto:     monto,
			Concepto:  concepto,
			Categoria: categorize.Canonicalize(toString(obj["categoria"])),
			Tipo:      internal.ParseTipo(strings.ToLower(toString(obj["tipo"]))),
			Source:    internal.SourceAI,
		})
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// InterpretLines asks the model to re-read each line. The result is discarded
// unless it has exactly one entry per input line.
func (a *Adapter) InterpretLines(ctx context.Context, lines []string) []LineResult {
	if !a.Enabled() || len(lines) == 0 {
		return nil
	}

	raw, err := a.gen.Generate(ctx, linesPrompt(lines))
	if err != nil {
		a.log.Warn().Err(err).Str("stage", "lines").Msg("ai call failed")
		return nil
	}
	objs, err := decodeObjects(raw)
	if err != nil {
		a.log.Warn().Err(err).Str("stage", "lines").Msg("ai response discarded")
		return nil
	}
	if len(objs) != len(lines) {
		a.log.Warn().Int("want", len(lines)).Int("got", len(objs)).Str("stage", "lines").Msg("ai response length mismatch")
		return nil
	}

	out := make([]LineResult, 0, len(objs))
	for _, obj := range objs {
		res := LineResult{
			Categoria: categorize.Canonicalize(toString(obj["categoria"])),
			Tipo:      internal.ParseTipo(strings.ToLower(toString(obj["tipo"]))),
		}
		if monto, ok := toAmount(obj["monto"]); ok {
			res.Monto = &monto
		}
		out = append(out, res)
	}
	return out
}
