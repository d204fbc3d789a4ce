package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tipo string

const (
	TipoGasto   Tipo = "gasto"
	TipoIngreso Tipo = "ingreso"
)

// ParseTipo honors only an explicit income marker; anything else is an expense.
func ParseTipo(value string) Tipo {
	if Tipo(value) == TipoIngreso {
		return TipoIngreso
	}
	return TipoGasto
}

const (
	SinConcepto = "Sin concepto"
	SinDesglose = "Sin desglose"
)

type ItemSource string

const (
	SourceTable    ItemSource = "table"
	SourceText     ItemSource = "text"
	SourceSingle   ItemSource = "single"
	SourceAI       ItemSource = "ai"
	SourceFallback ItemSource = "placeholder"
)

// RawDocument is an upload as received; it is consumed once by the pipeline.
type RawDocument struct {
	Content  []byte
	MimeType string
	FileName string
}

type ExtractedItem struct {
	Fecha         time.Time
	Monto         decimal.Decimal
	Concepto      string
	Categoria     string
	Tipo          Tipo
	TextoOriginal string
	Source        ItemSource
}

type Expense struct {
	ID            string
	SessionID     string
	Fecha         time.Time
	Monto         decimal.Decimal
	Tipo          Tipo
	Concepto      string
	Categoria     string
	Archivo       string
	TextoExtraido string
	CreadoEn      time.Time
}

type ExpensePatch struct {
	Categoria *string
	Tipo      *Tipo
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
