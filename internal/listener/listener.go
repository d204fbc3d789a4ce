package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lectorgastos/internal/config"
	"lectorgastos/internal/connectors"
	gmailconnector "lectorgastos/internal/connectors/gmail"
	imapconnector "lectorgastos/internal/connectors/imap"
	"lectorgastos/internal/pipeline"
	"lectorgastos/internal/storage"
)

const lastCycleKey = "listener.lastCycle"

// ConnectorFactory builds the mailbox client for a provider name.
type ConnectorFactory func(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error)

type Service struct {
	db         *storage.DB
	cfg        config.Config
	processor  *pipeline.Processor
	log        zerolog.Logger
	newConnect ConnectorFactory
	now        func() time.Time
}

func NewService(db *storage.DB, cfg config.Config, processor *pipeline.Processor, log zerolog.Logger) *Service {
	return &Service{
		db:         db,
		cfg:        cfg,
		processor:  processor,
		log:        log.With().Str("component", "listener").Logger(),
		newConnect: NewConnector,
		now:        time.Now,
	}
}

// Run polls the mailbox until ctx is cancelled. A failed cycle is logged and
// retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.log.Error().Err(err).Msg("cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// CycleResult counts what one poll did.
type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Saved     int
	Exported  string
}

func (s *Service) RunCycle(ctx context.Context) error {
	_, err := s.cycle(ctx)
	return err
}

func (s *Service) cycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.newConnect(ctx, s.cfg, provider)
	if err != nil {
		return CycleResult{}, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return CycleResult{}, err
	}

	result := CycleResult{Fetched: fetchResult.Fetched, Stored: fetchResult.Stored}
	result.Processed, result.Saved, err = s.processor.ProcessPending(ctx, s.cfg.MailListenerSessionID, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return result, err
	}

	if s.cfg.MailListenerAutoExport && result.Saved > 0 {
		if result.Exported, err = s.export(ctx); err != nil {
			return result, err
		}
	}

	if err := s.db.SetMetadata(ctx, lastCycleKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn().Err(err).Msg("last cycle not recorded")
	}

	s.log.Info().Str("provider", provider).Int("fetched", result.Fetched).Int("stored", result.Stored).
		Int("processed", result.Processed).Int("saved", result.Saved).Msg("cycle done")
	return result, nil
}

// export rewrites the daily workbook of the listener session.
func (s *Service) export(ctx context.Context) (string, error) {
	expenses, err := s.db.ListExpenses(ctx, s.cfg.MailListenerSessionID)
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", pipeline.ExportFileName(s.now()))
	if err := pipeline.ExportExpensesToFile(expenses, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// NewConnector is the default ConnectorFactory.
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}
