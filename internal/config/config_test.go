package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("TESSERACT_LANG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AIEnabled())
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, "spa+eng", cfg.TesseractLang)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("MAIL_LISTENER_FETCH_MAX", "nope")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.IMAPSecure)
	assert.Equal(t, 20, cfg.MailListenerFetchMax)
}

func TestRequire(t *testing.T) {
	var cfg Config
	require.Error(t, cfg.Require("IMAP_HOST", "  "))
	require.NoError(t, cfg.Require("IMAP_HOST", "mail.test"))
}
