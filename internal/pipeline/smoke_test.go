package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectorgastos/internal/storage"
)

const statementEmail = `From: banco@example.com
To: yo@example.com
Subject: Estado de cuenta febrero
Date: Mon, 16 Feb 2026 10:00:00 -0600
Message-ID: <estado-1@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Adjunto movimientos.
--XYZ
Content-Type: text/csv; name="movimientos.csv"
Content-Disposition: attachment; filename="movimientos.csv"

Fecha,Concepto,Importe
2026-02-01,Pago CFE,850.00
2026-02-03,Netflix,219
--XYZ
Content-Type: application/octet-stream; name="firma.p7s"
Content-Disposition: attachment; filename="firma.p7s"

xxxx
--XYZ--
`

func TestSmokeEmailToXLSX(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	rawPath := filepath.Join(tmp, "fixture.eml")
	require.NoError(t, os.WriteFile(rawPath, []byte(strings.ReplaceAll(statementEmail, "\n", "\r\n")), 0o644))

	email, err := db.UpsertEmail(ctx, "imap", "<estado-1@example.com>", "Estado de cuenta febrero", "banco@example.com", "2026-02-16T16:00:00Z", "hash", rawPath, "fetched")
	require.NoError(t, err)

	proc := NewProcessor(db, nil, nil, zerolog.Nop())
	processed, saved, err := proc.ProcessPending(ctx, "correo", 10, "imap")
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 2, saved)

	row, err := db.GetEmailByProviderMessageID(ctx, "imap", email.MessageID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "processed", row.Status)

	expenses, err := db.ListExpenses(ctx, "correo")
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	byConcept := map[string]string{}
	for _, e := range expenses {
		byConcept[e.Concepto] = e.Categoria
		assert.Equal(t, "movimientos.csv", e.Archivo)
	}
	assert.Equal(t, map[string]string{"Pago CFE": "Servicios", "Netflix": "Entretenimiento"}, byConcept)

	runs, err := db.CountRuns(ctx, "correo")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	out := filepath.Join(tmp, "out", "gastos.xlsx")
	require.NoError(t, ExportExpensesToFile(expenses, out))
	_, err = os.Stat(out)
	require.NoError(t, err)
}

func TestSaveUploadKeepsOrder(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	proc := NewProcessor(db, nil, nil, zerolog.Nop())
	saved, err := proc.SaveUpload(ctx, "s1", textDocWithLines("Uber 120", "Oxxo 45,50", "Cine 90"))
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "Uber", saved[0].Concepto)
	assert.Equal(t, "Cine", saved[2].Concepto)
	assert.Equal(t, "Uber 120", saved[0].TextoExtraido)
	assert.Less(t, saved[0].ID, saved[2].ID)

	listed, err := db.ListExpenses(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, saved[2].ID, listed[0].ID)

	other, err := db.ListExpenses(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDocumentsFromEmailBody(t *testing.T) {
	raw := "From: a@example.com\r\nSubject: Ticket: comida\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nTacos 180\r\n"
	docs, err := DocumentsFromEmail([]byte(raw))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Ticket__comida.txt", docs[0].FileName)
	assert.Equal(t, MimePlain, docs[0].MimeType)
	assert.Contains(t, string(docs[0].Content), "Tacos 180")
}

func TestProcessEmailReportsStatusWriteFailure(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)

	rawPath := filepath.Join(tmp, "vacio.eml")
	require.NoError(t, os.WriteFile(rawPath, []byte("From: a@example.com\r\nSubject: sin nada\r\n\r\n"), 0o644))
	email, err := db.UpsertEmail(ctx, "imap", "<vacio@example.com>", "sin nada", "a@example.com", "2026-02-16T16:00:00Z", "hash", rawPath, "fetched")
	require.NoError(t, err)

	proc := NewProcessor(db, nil, nil, zerolog.Nop())
	require.NoError(t, db.Close())

	res, err := proc.ProcessEmail(ctx, "correo", email)
	assert.Error(t, err)
	assert.Zero(t, res.Documents)
}
