package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lectorgastos/internal/config"
)

// Recognizer runs tesseract over image bytes.
type Recognizer struct {
	bin    string
	lang   string
	runner Runner
	log    zerolog.Logger
}

func NewRecognizer(cfg config.Config, log zerolog.Logger) *Recognizer {
	return NewRecognizerWithRunner(cfg, execRunner{}, log)
}

func NewRecognizerWithRunner(cfg config.Config, runner Runner, log zerolog.Logger) *Recognizer {
	bin := strings.TrimSpace(cfg.TesseractBin)
	if bin == "" {
		bin = "tesseract"
	}
	lang := strings.TrimSpace(cfg.TesseractLang)
	if lang == "" {
		lang = "spa+eng"
	}
	return &Recognizer{bin: bin, lang: lang, runner: runner, log: log}
}

// Recognize returns the text tesseract reads from an image. The ext hint
// (".png", ".jpg") names the temp file so tesseract picks the right decoder.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, ext string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("ocr: empty image")
	}
	if ext == "" {
		ext = ".png"
	}

	f, err := os.CreateTemp("", "lector-ocr-*"+ext)
	if err != nil {
		return "", fmt.Errorf("ocr: temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("ocr: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("ocr: close temp file: %w", err)
	}

	start := time.Now()
	stdout, stderr, err := r.runner.Run(ctx, r.bin, f.Name(), "stdout", "-l", r.lang)
	if err != nil {
		r.log.Error().Err(err).Str("file", filepath.Base(f.Name())).Str("stderr", truncate(string(stderr), 8<<10)).Msg("tesseract failed")
		return "", fmt.Errorf("ocr: tesseract: %w", err)
	}
	r.log.Debug().Dur("duration", time.Since(start)).Int("bytes", len(stdout)).Msg("tesseract ok")
	return strings.TrimSpace(string(stdout)), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
