package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"lectorgastos/internal"
	"lectorgastos/internal/categorize"
	"lectorgastos/internal/logger"
	"lectorgastos/internal/pipeline"
	"lectorgastos/internal/storage"
)

const (
	msgMissingSession = "Falta X-Session-Id"
	msgMissingFile    = "Falta archivo (documento)"
	msgBadType        = "Solo CSV, Excel, HTML, PDF, JPG, PNG"
	msgTooLarge       = "Archivo demasiado grande"
	msgNotFound       = "No encontrado"
	msgPatchEmpty     = "Enviar categoria y/o tipo"
	msgIDsRequired    = "ids (array) requerido"
)

type itemView struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId,omitempty"`
	Fecha     time.Time `json:"fecha"`
	Monto     float64   `json:"monto"`
	Tipo      string    `json:"tipo"`
	Concepto  string    `json:"concepto"`
	Categoria string    `json:"categoria"`
	Archivo   string    `json:"archivo,omitempty"`
	CreadoEn  time.Time `json:"creadoEn,omitzero"`
}

func fullView(e internal.Expense) itemView {
	return itemView{
		ID:        e.ID,
		SessionID: e.SessionID,
		Fecha:     e.Fecha,
		Monto:     e.Monto.InexactFloat64(),
		Tipo:      string(e.Tipo),
		Concepto:  e.Concepto,
		Categoria: e.Categoria,
		Archivo:   e.Archivo,
		CreadoEn:  e.CreadoEn,
	}
}

func savedView(e internal.Expense) itemView {
	return itemView{
		ID:        e.ID,
		Fecha:     e.Fecha,
		Monto:     e.Monto.InexactFloat64(),
		Tipo:      string(e.Tipo),
		Concepto:  e.Concepto,
		Categoria: e.Categoria,
	}
}

func sessionOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(sessionHeader))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "api": routePrefix, "health": "/health"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": serviceName,
		"time":    s.now().UTC().Format(time.RFC3339Nano),
	})
}

// handleUpload handles POST /api/documentos
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if file != nil {
		defer file.Close()
		if !pipeline.AllowedFile(header.Filename) {
			writeError(w, http.StatusBadRequest, msgBadType)
			return
		}
		if header.Size > s.cfg.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
	}

	session := sessionOf(r)
	if session == "" {
		writeError(w, http.StatusBadRequest, msgMissingSession)
		return
	}
	if file == nil {
		writeError(w, http.StatusBadRequest, msgMissingFile)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.processor.SaveUpload(r.Context(), session, internal.RawDocument{
		Content:  content,
		MimeType: header.Header.Get("Content-Type"),
		FileName: header.Filename,
	})
	if err != nil {
		var extractErr *pipeline.ExtractionError
		if errors.As(err, &extractErr) && extractErr.Code == pipeline.CodeUnsupportedType {
			writeError(w, http.StatusBadRequest, extractErr.Message)
			return
		}
		log.Error().Err(err).Str("file", header.Filename).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(saved) == 1 {
		v := savedView(saved[0])
		writeJSON(w, http.StatusCreated, map[string]any{
			"ok":        true,
			"id":        v.ID,
			"fecha":     v.Fecha,
			"monto":     v.Monto,
			"tipo":      v.Tipo,
			"concepto":  v.Concepto,
			"categoria": v.Categoria,
		})
		return
	}

	items := make([]itemView, 0, len(saved))
	for _, e := range saved {
		items = append(items, savedView(e))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "items": items, "count": len(items)})
}

// handleList handles GET /api/documentos
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.db.ListExpenses(r.Context(), sessionOf(r))
	if err != nil {
		s.internalError(w, r, err, "list expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": views(expenses)})
}

// handleExport handles GET /api/documentos/export/excel
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	if session == "" {
		writeError(w, http.StatusBadRequest, msgMissingSession)
		return
	}

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	expenses, err := s.db.ListExpensesByIDs(r.Context(), session, ids)
	if err != nil {
		s.internalError(w, r, err, "export expenses")
		return
	}

	var buf bytes.Buffer
	if err := pipeline.ExportExpensesToXLSX(&buf, expenses); err != nil {
		s.internalError(w, r, err, "build workbook")
		return
	}

	w.Header().Set("Content-Type", pipeline.MimeXLSX)
	w.Header().Set("Content-Disposition", "attachment; filename="+pipeline.ExportFileName(s.now()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleBulkDelete handles POST /api/documentos/bulk-delete
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	if session == "" {
		writeError(w, http.StatusBadRequest, msgMissingSession)
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, msgIDsRequired)
		return
	}

	deleted, err := s.db.DeleteExpenses(r.Context(), session, req.IDs)
	if err != nil {
		s.internalError(w, r, err, "bulk delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": deleted})
}

// handleCategories handles GET /api/documentos/categorias
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := slices.Clone(categorize.Categories)
	if session := sessionOf(r); session != "" {
		custom, err := s.db.CustomCategories(r.Context(), session)
		if err != nil {
			s.internalError(w, r, err, "custom categories")
			return
		}
		categories = append(categories, custom...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "categorias": categories})
}

// handleGet handles GET /api/documentos/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	expense, err := s.db.GetExpense(r.Context(), sessionOf(r), r.PathValue("id"))
	if s.notFoundOrError(w, r, err, "get expense") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": fullView(expense)})
}

// handlePatch handles PATCH /api/documentos/{id}
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categoria any `json:"categoria"`
		Tipo      any `json:"tipo"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	var patch internal.ExpensePatch
	if c, ok := req.Categoria.(string); ok && strings.TrimSpace(c) != "" {
		trimmed := strings.TrimSpace(c)
		patch.Categoria = &trimmed
	}
	if t, ok := req.Tipo.(string); ok && (t == string(internal.TipoIngreso) || t == string(internal.TipoGasto)) {
		tipo := internal.Tipo(t)
		patch.Tipo = &tipo
	}
	if patch.Categoria == nil && patch.Tipo == nil {
		writeError(w, http.StatusBadRequest, msgPatchEmpty)
		return
	}

	expense, err := s.db.UpdateExpense(r.Context(), sessionOf(r), r.PathValue("id"), patch)
	if s.notFoundOrError(w, r, err, "update expense") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": fullView(expense)})
}

// handleDelete handles DELETE /api/documentos/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteExpense(r.Context(), sessionOf(r), r.PathValue("id"))
	if s.notFoundOrError(w, r, err, "delete expense") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) notFoundOrError(w http.ResponseWriter, r *http.Request, err error, op string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		s.internalError(w, r, err, op)
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error, op string) {
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Str("op", op).Msg("request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func views(expenses []internal.Expense) []itemView {
	out := make([]itemView, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, fullView(e))
	}
	return out
}
