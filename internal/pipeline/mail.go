package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"lectorgastos/internal"
)

type MailResult struct {
	EmailID   int
	Documents int
	Saved     int
}

func (p *Processor) ProcessByProviderMessageID(ctx context.Context, sessionID, provider, messageID string) (MailResult, error) {
	email, err := p.db.MustEmailByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return MailResult{}, err
	}
	return p.ProcessEmail(ctx, sessionID, email)
}

// ProcessPending runs every fetched email through the pipeline, oldest first.
func (p *Processor) ProcessPending(ctx context.Context, sessionID string, limit int, provider string) (int, int, error) {
	pending, err := p.db.ListEmailsByStatus(ctx, "fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	savedItems := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := p.ProcessEmail(ctx, sessionID, email)
		if err != nil {
			return processedEmails, savedItems, err
		}
		processedEmails++
		savedItems += res.Saved
	}
	return processedEmails, savedItems, nil
}

// ProcessEmail saves the records of every supported attachment. A message
// without one is read from its body instead. Unreadable attachments are skipped.
func (p *Processor) ProcessEmail(ctx context.Context, sessionID string, email internal.EmailRow) (MailResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return MailResult{}, err
	}

	docs, err := DocumentsFromEmail(raw)
	if err != nil {
		return MailResult{}, err
	}
	result := MailResult{EmailID: email.ID, Documents: len(docs)}

	if len(docs) == 0 {
		if err := p.db.UpdateEmailStatus(ctx, email.ID, "skipped"); err != nil {
			return result, err
		}
		return result, nil
	}

	emailID := email.ID
	for _, doc := range docs {
		saved, err := p.save(ctx, sessionID, doc, &emailID)
		var extractErr *ExtractionError
		if errors.As(err, &extractErr) {
			p.log.Warn().Err(err).Int("email", email.ID).Str("file", doc.FileName).Msg("attachment skipped")
			continue
		}
		if err != nil {
			return result, err
		}
		result.Saved += len(saved)
	}

	if err := p.db.UpdateEmailStatus(ctx, email.ID, "processed"); err != nil {
		return result, err
	}
	p.log.Info().Int("email", email.ID).Int("documents", result.Documents).Int("saved", result.Saved).
		Dur("took", time.Since(start)).Msg("email processed")
	return result, nil
}

// DocumentsFromEmail lists the documents a raw message carries: its allowed
// attachments, or else its HTML or plain body.
func DocumentsFromEmail(raw []byte) ([]internal.RawDocument, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	docs := []internal.RawDocument{}
	for _, att := range append(env.Attachments, env.Inlines...) {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" || !AllowedFile(filename) {
			continue
		}
		docs = append(docs, internal.RawDocument{Content: att.Content, MimeType: att.ContentType, FileName: filename})
	}
	if len(docs) > 0 {
		return docs, nil
	}

	name := mailDocumentName(env.GetHeader("Subject"))
	switch {
	case strings.TrimSpace(env.HTML) != "":
		docs = append(docs, internal.RawDocument{Content: []byte(env.HTML), MimeType: MimeHTML, FileName: name + ".html"})
	case strings.TrimSpace(env.Text) != "":
		docs = append(docs, internal.RawDocument{Content: []byte(env.Text), MimeType: MimePlain, FileName: name + ".txt"})
	}
	return docs, nil
}

func mailDocumentName(subject string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(strings.TrimSpace(firstNonEmpty(subject, "correo")))
	if r := []rune(out); len(r) > 80 {
		out = string(r[:80])
	}
	return out
}
