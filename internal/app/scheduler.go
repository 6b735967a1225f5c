package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

const refreshTimeout = 10 * time.Minute

// DirectoryImporter refreshes the local company directory.
type DirectoryImporter interface {
	ImportDirectory(ctx context.Context) (int, error)
}

// Scheduler runs the company directory refresh on a cron schedule.
type Scheduler struct {
	importer DirectoryImporter
	cron     *cron.Cron
	log      *logger.Logger
}

func NewScheduler(importer DirectoryImporter, log *logger.Logger) *Scheduler {
	return &Scheduler{
		importer: importer,
		cron:     cron.New(),
		log:      log.With("component", "scheduler"),
	}
}

// Start registers the refresh job with a standard five-field spec and starts
// the cron runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return fmt.Errorf("invalid COMPANY_REFRESH_CRON %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info("company directory refresh scheduled", "schedule", spec)
	return nil
}

// Stop waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.importer.ImportDirectory(ctx)
	if err != nil {
		s.log.Error("scheduled company refresh failed", "error", err)
		return
	}
	s.log.Info("scheduled company refresh done", "companies", n, "duration", time.Since(start))
}
