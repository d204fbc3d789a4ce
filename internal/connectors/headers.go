package connectors

import (
	"bytes"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

type Headers struct {
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
}

// HeadersFromRaw reads the envelope headers of a raw message. ReceivedAt is
// RFC 3339 in UTC and falls back to now when the Date header is unreadable.
func HeadersFromRaw(raw []byte, now time.Time) (Headers, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Headers{}, err
	}
	h := Headers{
		MessageID:  strings.TrimSpace(env.GetHeader("Message-ID")),
		Subject:    env.GetHeader("Subject"),
		From:       env.GetHeader("From"),
		ReceivedAt: now.UTC().Format(time.RFC3339),
	}
	if date := env.GetHeader("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			h.ReceivedAt = t.UTC().Format(time.RFC3339)
		}
	}
	return h, nil
}
