package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"lectorgastos/internal"
	"lectorgastos/internal/categorize"
)

var ErrNotFound = errors.New("no encontrado")

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS gastos (
  id TEXT PRIMARY KEY,
  sessionId TEXT NOT NULL,
  fecha TEXT NOT NULL,
  monto TEXT NOT NULL,
  tipo TEXT NOT NULL DEFAULT 'gasto',
  concepto TEXT NOT NULL DEFAULT '',
  categoria TEXT NOT NULL DEFAULT 'Otros',
  archivo TEXT NOT NULL DEFAULT '',
  textoExtraido TEXT NOT NULL DEFAULT '',
  creadoEn TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gastos_session ON gastos(sessionId, creadoEn);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  sessionId TEXT NOT NULL DEFAULT '',
  archivo TEXT NOT NULL DEFAULT '',
  emailId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const expenseColumns = `id, sessionId, fecha, monto, tipo, concepto, categoria, archivo, textoExtraido, creadoEn`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (internal.Expense, error) {
	var e internal.Expense
	var fecha, monto, tipo, creadoEn string
	if err := s.Scan(&e.ID, &e.SessionID, &fecha, &monto, &tipo, &e.Concepto, &e.Categoria, &e.Archivo, &e.TextoExtraido, &creadoEn); err != nil {
		return internal.Expense{}, err
	}
	var err error
	if e.Fecha, err = time.Parse(timeLayout, fecha); err != nil {
		return internal.Expense{}, fmt.Errorf("gasto %s: fecha: %w", e.ID, err)
	}
	if e.CreadoEn, err = time.Parse(timeLayout, creadoEn); err != nil {
		return internal.Expense{}, fmt.Errorf("gasto %s: creadoEn: %w", e.ID, err)
	}
	if e.Monto, err = decimal.NewFromString(monto); err != nil {
		return internal.Expense{}, fmt.Errorf("gasto %s: monto: %w", e.ID, err)
	}
	e.Tipo = internal.ParseTipo(tipo)
	return e, nil
}

func (d *DB) queryExpenses(ctx context.Context, query string, args ...any) ([]internal.Expense, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) InsertExpense(ctx context.Context, e internal.Expense) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO gastos (`+expenseColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, e.ID, e.SessionID, e.Fecha.UTC().Format(timeLayout), e.Monto.StringFixed(2), string(e.Tipo),
		e.Concepto, e.Categoria, e.Archivo, e.TextoExtraido, e.CreadoEn.UTC().Format(timeLayout))
	return err
}

// ListExpenses returns newest first. An empty session lists every session.
func (d *DB) ListExpenses(ctx context.Context, sessionID string) ([]internal.Expense, error) {
	if sessionID == "" {
		return d.queryExpenses(ctx, `SELECT `+expenseColumns+` FROM gastos ORDER BY creadoEn DESC, id DESC`)
	}
	return d.queryExpenses(ctx, `SELECT `+expenseColumns+` FROM gastos WHERE sessionId = ? ORDER BY creadoEn DESC, id DESC`, sessionID)
}

// ListExpensesByIDs returns the session's expenses among ids, newest first.
// With no ids it returns the whole session.
func (d *DB) ListExpensesByIDs(ctx context.Context, sessionID string, ids []string) ([]internal.Expense, error) {
	if len(ids) == 0 {
		return d.ListExpenses(ctx, sessionID)
	}
	query := `SELECT ` + expenseColumns + ` FROM gastos WHERE sessionId = ? AND id IN (` + placeholders(len(ids)) + `) ORDER BY creadoEn DESC, id DESC`
	return d.queryExpenses(ctx, query, append([]any{sessionID}, toArgs(ids)...)...)
}

// GetExpense looks an expense up by id, scoped to sessionID unless it is empty.
func (d *DB) GetExpense(ctx context.Context, sessionID, id string) (internal.Expense, error) {
	query, args := scoped(`SELECT `+expenseColumns+` FROM gastos WHERE id = ?`, sessionID, id)
	e, err := scanExpense(d.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Expense{}, ErrNotFound
	}
	return e, err
}

func (d *DB) UpdateExpense(ctx context.Context, sessionID, id string, patch internal.ExpensePatch) (internal.Expense, error) {
	sets := []string{}
	args := []any{}
	if patch.Categoria != nil {
		sets = append(sets, "categoria = ?")
		args = append(args, *patch.Categoria)
	}
	if patch.Tipo != nil {
		sets = append(sets, "tipo = ?")
		args = append(args, string(*patch.Tipo))
	}
	if len(sets) == 0 {
		return d.GetExpense(ctx, sessionID, id)
	}

	query, scopeArgs := scoped(`UPDATE gastos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, sessionID, id)
	res, err := d.conn.ExecContext(ctx, query, append(args, scopeArgs...)...)
	if err != nil {
		return internal.Expense{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return internal.Expense{}, err
	} else if n == 0 {
		return internal.Expense{}, ErrNotFound
	}
	return d.GetExpense(ctx, sessionID, id)
}

func (d *DB) DeleteExpense(ctx context.Context, sessionID, id string) error {
	query, args := scoped(`DELETE FROM gastos WHERE id = ?`, sessionID, id)
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpenses removes the session's expenses among ids and reports how many went.
func (d *DB) DeleteExpenses(ctx context.Context, sessionID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM gastos WHERE sessionId = ? AND id IN (` + placeholders(len(ids)) + `)`
	res, err := d.conn.ExecContext(ctx, query, append([]any{sessionID}, toArgs(ids)...)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CustomCategories lists the categories stored for a session that are not
// part of the built-in set.
func (d *DB) CustomCategories(ctx context.Context, sessionID string) ([]string, error) {
	query := `SELECT DISTINCT categoria FROM gastos WHERE sessionId = ? AND categoria <> '' AND categoria NOT IN (` +
		placeholders(len(categorize.Categories)) + `) ORDER BY categoria`
	rows, err := d.conn.QueryContext(ctx, query, append([]any{sessionID}, toArgs(categorize.Categories)...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scoped(query, sessionID, id string) (string, []any) {
	if sessionID == "" {
		return query, []any{id}
	}
	return query + ` AND sessionId = ?`, []any{id, sessionID}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func (d *DB) UpsertEmail(ctx context.Context, provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(ctx context.Context, provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRowContext(ctx, `
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(ctx context.Context, status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(ctx context.Context, emailID int, status string) error {
	_, err := d.conn.ExecContext(ctx, `UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) MustEmailByProviderMessageID(ctx context.Context, provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

// Run is one pipeline execution over a document or an email.
type Run struct {
	TraceID   string
	SessionID string
	Archivo   string
	EmailID   *int
	Timings   map[string]float64
	Counts    map[string]int
}

func (d *DB) InsertRun(ctx context.Context, run Run) error {
	timingsJSON, _ := json.Marshal(run.Timings)
	countsJSON, _ := json.Marshal(run.Counts)
	_, err := d.conn.ExecContext(ctx, `INSERT INTO runs (traceId, sessionId, archivo, emailId, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?, ?)`,
		run.TraceID, run.SessionID, run.Archivo, run.EmailID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) CountRuns(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE sessionId = ?`, sessionID).Scan(&n)
	return n, err
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
