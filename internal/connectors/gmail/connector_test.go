package gmail

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectorgastos/internal/config"
)

func TestDecodeBase64URL(t *testing.T) {
	raw := []byte("Subject: ticket\r\n\r\n¿total? 45,50")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding} {
		got, err := decodeBase64URL(enc.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	}
	_, err := decodeBase64URL("***")
	assert.Error(t, err)
}

func TestNewConnectorRequiresCredentials(t *testing.T) {
	_, err := NewConnector(context.Background(), config.Config{GmailClientID: "id"})
	assert.ErrorContains(t, err, "GMAIL_CLIENT_SECRET")
}
