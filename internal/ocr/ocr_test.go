package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectorgastos/internal/config"
)

type stubRunner struct {
	name   string
	args   []string
	stdout string
	err    error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.name = name
	s.args = args
	return []byte(s.stdout), []byte("boom"), s.err
}

func TestRecognizeUsesSpanishAndEnglish(t *testing.T) {
	runner := &stubRunner{stdout: "  OXXO 45.50\n"}
	r := NewRecognizerWithRunner(config.Config{}, runner, zerolog.Nop())

	text, err := r.Recognize(context.Background(), []byte{0x89, 'P', 'N', 'G'}, ".png")
	require.NoError(t, err)
	assert.Equal(t, "OXXO 45.50", text)
	assert.Equal(t, "tesseract", runner.name)
	require.Len(t, runner.args, 4)
	assert.Equal(t, []string{"stdout", "-l", "spa+eng"}, runner.args[1:])
}

func TestRecognizeFailureIsAnError(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 1")}
	r := NewRecognizerWithRunner(config.Config{TesseractBin: "/opt/tesseract"}, runner, zerolog.Nop())

	_, err := r.Recognize(context.Background(), []byte("jpeg"), ".jpg")
	require.Error(t, err)
	assert.Equal(t, "/opt/tesseract", runner.name)
}

func TestRecognizeEmptyImage(t *testing.T) {
	r := NewRecognizerWithRunner(config.Config{}, &stubRunner{}, zerolog.Nop())
	_, err := r.Recognize(context.Background(), nil, ".png")
	require.Error(t, err)
}
