package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
)

const reminderJobType = "cohort_reminder"

type cohortSender interface {
	SendToCohort(ctx context.Context, sender models.Identity, selector models.CohortSelector, draft models.Draft) (models.FanOut, error)
}

// ReminderConfig schedules the requirement reminders.
type ReminderConfig struct {
	Schedule      string
	Workers       int
	Retries       int
	Timeout       time.Duration
	ECTSTitle     string
	LanguageTitle string
	Requirements  models.Requirements
}

type reminderPayload struct {
	Selector models.CohortSelector
	Draft    models.Draft
}

// ReminderService periodically messages the students who miss the ECTS or
// language requirement. The cron tick only enqueues; sending happens on the
// job queue so failed sends are retried.
type ReminderService struct {
	sender cohortSender
	cfg    ReminderConfig
	queue  *jobs.Queue
	cron   *cron.Cron
	logger *zap.Logger
}

// NewReminderService constructs ReminderService.
func NewReminderService(sender cohortSender, cfg ReminderConfig, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	s := &ReminderService{
		sender: sender,
		cfg:    cfg,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: logger,
	}
	s.queue = jobs.NewQueue("reminders", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: 5 * time.Second,
		JobTimeout: cfg.Timeout,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers and the cron schedule.
func (s *ReminderService) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.EnqueueAll(); err != nil {
			s.logger.Error("enqueue reminders failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.cfg.Schedule, err)
	}
	s.queue.Start(ctx)
	s.cron.Start()
	s.logger.Info("reminders scheduled", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop halts the schedule, waits for a running tick and drains the workers.
func (s *ReminderService) Stop() {
	<-s.cron.Stop().Done()
	s.queue.Stop()
}

// EnqueueAll queues one reminder job per requirement cohort.
func (s *ReminderService) EnqueueAll() ([]string, error) {
	req := s.cfg.Requirements
	payloads := []reminderPayload{
		{
			Selector: models.CohortECTSBelowMinimum,
			Draft: models.Draft{
				Title:   s.cfg.ECTSTitle,
				Content: fmt.Sprintf("You are enrolled in fewer than %d ECTS. Please enroll in additional courses to meet the minimum requirement.", req.MinimumECTS),
			},
		},
		{
			Selector: models.CohortLanguageRequirement,
			Draft: models.Draft{
				Title:   s.cfg.LanguageTitle,
				Content: fmt.Sprintf("You need at least %d ECTS in English and %d ECTS in German. Please check your enrollments.", req.LanguageMinimumECTS, req.LanguageMinimumECTS),
			},
		},
	}
	ids := make([]string, 0, len(payloads))
	for _, p := range payloads {
		id, err := s.queue.Enqueue(jobs.Job{Type: reminderJobType, Payload: p})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats reports the reminder queue counters.
func (s *ReminderService) Stats() jobs.Stats {
	return s.queue.Stats()
}

func (s *ReminderService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reminderPayload)
	if !ok {
		return fmt.Errorf("unexpected reminder payload %T", job.Payload)
	}
	fan, err := s.sender.SendToCohort(ctx, models.Admin, payload.Selector, payload.Draft)
	if err != nil {
		if appErrors.IsCode(err, appErrors.ErrValidation.Code) {
			s.logger.Error("reminder rejected", zap.String("cohort", string(payload.Selector)), zap.Error(err))
			return nil
		}
		return err
	}
	s.logger.Info("reminder sent", zap.String("job_id", job.ID), zap.String("cohort", string(payload.Selector)), zap.Int("receivers", fan.Count))
	return nil
}
