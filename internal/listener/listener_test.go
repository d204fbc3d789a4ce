package listener

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectorgastos/internal"
	"lectorgastos/internal/config"
	"lectorgastos/internal/connectors"
	"lectorgastos/internal/pipeline"
	"lectorgastos/internal/storage"
)

const ticketEmail = `From: tienda@example.com
To: yo@example.com
Subject: Tu ticket
Message-ID: <ticket-7@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="B1"

--B1
Content-Type: text/plain; charset=utf-8

Gracias por tu compra.
--B1
Content-Type: text/csv; name="ticket.csv"
Content-Disposition: attachment; filename="ticket.csv"

Fecha,Concepto,Monto
2026-02-10,Super Walmart,540.50
--B1--
`

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	err      error
}

func (f fakeConnector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	return f.messages, f.err
}

func newTestService(t *testing.T, conn connectors.MailConnector, autoExport bool) (*Service, *storage.DB) {
	t.Helper()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		RawMailDir:               filepath.Join(tmp, "raw"),
		OutputDir:                filepath.Join(tmp, "out"),
		MailListenerProvider:     "IMAP",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerSessionID:    "correo",
		MailListenerAutoExport:   autoExport,
	}
	svc := NewService(db, cfg, pipeline.NewProcessor(db, nil, nil, zerolog.Nop()), zerolog.Nop())
	svc.newConnect = func(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
		assert.Equal(t, "imap", provider)
		return conn, nil
	}
	svc.now = func() time.Time { return time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC) }
	return svc, db
}

func TestCycleFetchesProcessesAndExports(t *testing.T) {
	ctx := context.Background()
	conn := fakeConnector{messages: []internal.FetchedMailMessage{{
		Provider:   "imap",
		MessageID:  "<ticket-7@example.com>",
		Subject:    "Tu ticket",
		ReceivedAt: "2026-02-16T08:00:00Z",
		Raw:        []byte(strings.ReplaceAll(ticketEmail, "\n", "\r\n")),
	}}}
	svc, db := newTestService(t, conn, true)

	result, err := svc.cycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Saved)

	expenses, err := db.ListExpenses(ctx, "correo")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Super Walmart", expenses[0].Concepto)
	assert.Equal(t, "540.5", expenses[0].Monto.String())
	assert.Equal(t, "Supermercado", expenses[0].Categoria)

	require.NotEmpty(t, result.Exported)
	assert.Equal(t, "gastos-2026-02-16.xlsx", filepath.Base(result.Exported))
	_, err = os.Stat(result.Exported)
	assert.NoError(t, err)

	last, err := db.GetMetadata(ctx, lastCycleKey)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "2026-02-16T09:00:00Z", *last)

	// The same message on the next poll is not processed twice.
	result, err = svc.cycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	expenses, err = db.ListExpenses(ctx, "correo")
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
}

func TestCycleFetchError(t *testing.T) {
	svc, db := newTestService(t, fakeConnector{err: errors.New("auth failed")}, false)

	err := svc.RunCycle(context.Background())
	assert.ErrorContains(t, err, "auth failed")

	last, err := db.GetMetadata(context.Background(), lastCycleKey)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t, fakeConnector{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.Run(ctx))
}

func TestNewConnectorRejectsUnknownProvider(t *testing.T) {
	_, err := NewConnector(context.Background(), config.Config{}, "pop3")
	assert.ErrorContains(t, err, "unsupported mail provider")
}
