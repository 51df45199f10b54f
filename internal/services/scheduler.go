// internal/services/scheduler.go
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/curation-backend/internal/config"
)

// Scheduler fires the batch stages on cron specs. Each run does its work
// inside the invocation; nothing carries over between runs.
type Scheduler struct {
	cron        *cron.Cron
	config      config.SchedulerConfig
	scrape      *ScrapeService
	curation    *CurationService
	translation *TranslationService

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(cfg config.SchedulerConfig, scrape *ScrapeService, curation *CurationService, translation *TranslationService) *Scheduler {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		config:      cfg,
		scrape:      scrape,
		curation:    curation,
		translation: translation,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"scrape", s.config.ScrapeSpec, s.RunScrape},
		{"translate", s.config.TranslateSpec, s.RunTranslate},
		{"review-translate", s.config.ReviewTranslateSpec, s.RunReviewTranslate},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(s.ctx) }); err != nil {
			return fmt.Errorf("failed to add %s job: %w", job.name, err)
		}
		logrus.WithFields(logrus.Fields{"job": job.name, "spec": job.spec}).Info("Scheduled job")
	}

	s.cron.Start()
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logrus.Info("Scheduler stopped")
}

// RunScrape scrapes the configured URLs, then sends every unsent successful
// product to curation.
func (s *Scheduler) RunScrape(ctx context.Context) {
	log := logrus.WithField("job", "scrape")

	if len(s.config.ScrapeURLs) > 0 {
		batch := s.scrape.ScrapeURLs(ctx, s.config.ScrapeURLs)
		log.WithFields(logrus.Fields{
			"succeeded": len(batch.Results),
			"failed":    len(batch.Errors),
		}).Info("Scheduled scrape finished")
	}

	unsent, err := s.scrape.ListUnsent(ctx, s.config.BatchLimit)
	if err != nil {
		log.WithError(err).Error("Failed to list unsent products")
		return
	}

	sent := 0
	for _, product := range unsent {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.curation.SendToCuration(ctx, product.ID); err != nil {
			log.WithError(err).WithField("scraped_product_id", product.ID).Warn("Failed to send product to curation")
			continue
		}
		sent++
	}
	log.WithFields(logrus.Fields{"candidates": len(unsent), "sent": sent}).Info("Scheduled send to curation finished")
}

func (s *Scheduler) RunTranslate(ctx context.Context) {
	if _, err := s.translation.BatchTranslate(ctx, s.config.BatchLimit); err != nil {
		logrus.WithError(err).WithField("job", "translate").Error("Scheduled draft translation failed")
	}
}

func (s *Scheduler) RunReviewTranslate(ctx context.Context) {
	if _, err := s.translation.BatchTranslateReviews(ctx, s.config.BatchLimit); err != nil {
		logrus.WithError(err).WithField("job", "review-translate").Error("Scheduled review translation failed")
	}
}
