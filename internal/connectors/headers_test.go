package connectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersFromRaw(t *testing.T) {
	raw := "From: Banco <avisos@banco.example>\r\nSubject: =?UTF-8?Q?Estado_de_cuenta_f=C3=A9brero?=\r\n" +
		"Date: Mon, 16 Feb 2026 10:00:00 -0600\r\nMessage-ID: <abc@banco.example>\r\n\r\nhola\r\n"
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	h, err := HeadersFromRaw([]byte(raw), now)
	require.NoError(t, err)
	assert.Equal(t, "<abc@banco.example>", h.MessageID)
	assert.Equal(t, "Estado de cuenta fébrero", h.Subject)
	assert.Equal(t, "2026-02-16T16:00:00Z", h.ReceivedAt)

	h, err = HeadersFromRaw([]byte("Subject: x\r\nDate: ayer\r\n\r\n"), now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T00:00:00Z", h.ReceivedAt)
}
