package pipeline

import (
	"context"
	"strings"
	"time"

	"lectorgastos/internal"
)

// document is an upload after reading: text for text-bearing formats, rows
// for spreadsheets.
type document struct {
	format format
	text   string
	table  table
	now    time.Time
}

// Strategy proposes items for a document. An empty result hands the document
// to the next strategy in the chain.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc document) []internal.ExtractedItem
}

type strategyFunc struct {
	name string
	fn   func(ctx context.Context, doc document) []internal.ExtractedItem
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Extract(ctx context.Context, doc document) []internal.ExtractedItem {
	return s.fn(ctx, doc)
}

// Chain runs strategies in order and keeps the first non-empty result.
type Chain []Strategy

func (c Chain) Run(ctx context.Context, doc document) ([]internal.ExtractedItem, string) {
	for _, s := range c {
		if items := s.Extract(ctx, doc); len(items) > 0 {
			return items, s.Name()
		}
	}
	return nil, ""
}

var (
	textLinesStrategy = strategyFunc{name: "text_lines", fn: func(_ context.Context, doc document) []internal.ExtractedItem {
		return extractLines(doc.text, doc.now)
	}}
	textSingleStrategy = strategyFunc{name: "text_single", fn: func(_ context.Context, doc document) []internal.ExtractedItem {
		return []internal.ExtractedItem{extractSingle(doc.text, doc.now)}
	}}
	tableRowsStrategy = strategyFunc{name: "table_rows", fn: func(_ context.Context, doc document) []internal.ExtractedItem {
		return extractTable(doc.table, doc.now)
	}}
	tableJoinedStrategy = strategyFunc{name: "table_joined", fn: func(_ context.Context, doc document) []internal.ExtractedItem {
		if len(doc.table.rows) == 0 {
			return nil
		}
		return []internal.ExtractedItem{extractSingle(joinRows(doc.table), doc.now)}
	}}
)

// DocumentInterpreter reads a whole document in one call.
type DocumentInterpreter interface {
	ExtractDocument(ctx context.Context, text string) []internal.ExtractedItem
}

func aiDocumentStrategy(ai DocumentInterpreter) Strategy {
	return strategyFunc{name: "ai_document", fn: func(ctx context.Context, doc document) []internal.ExtractedItem {
		if ai == nil || strings.TrimSpace(doc.text) == "" {
			return nil
		}
		items := ai.ExtractDocument(ctx, doc.text)
		for i := range items {
			items[i].TextoOriginal = items[i].Concepto + " " + items[i].Monto.String()
		}
		return items
	}}
}

func (p *Processor) chainFor(f format) Chain {
	switch {
	case f.tabular():
		return Chain{tableRowsStrategy, tableJoinedStrategy}
	case f.textBearing():
		return Chain{aiDocumentStrategy(p.ai), textLinesStrategy, textSingleStrategy}
	default:
		return Chain{textLinesStrategy, textSingleStrategy}
	}
}
