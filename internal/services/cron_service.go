package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron              *cron.Cron
	reconciliationSvc *ReconciliationService
	scheduleSvc       *ScheduleService
	scheduleRepo      *database.ScheduleRepository
	spec              string
	logger            *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	reconciliationSvc *ReconciliationService,
	scheduleSvc *ScheduleService,
	scheduleRepo *database.ScheduleRepository,
	cfg *config.SweepConfig,
	logger *logrus.Logger,
) *CronService {
	// Cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:              c,
		reconciliationSvc: reconciliationSvc,
		scheduleSvc:       scheduleSvc,
		scheduleRepo:      scheduleRepo,
		spec:              cfg.Spec,
		logger:            logger,
	}
}

// Start registers and starts all background jobs
func (s *CronService) Start() error {
	// Job 1: reconciliation sweep, default every 5 minutes.
	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc(s.spec, s.reconciliationJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation sweep: %w", err)
	}
	s.logger.WithField("spec", s.spec).Info("Scheduled: reconciliation sweep")

	// Job 2: generate sailing dates for the next 30 days, daily at 2 AM
	_, err = s.cron.AddFunc("0 0 2 * * *", s.generateSailingDatesJob)
	if err != nil {
		return fmt.Errorf("failed to schedule sailing date generation: %w", err)
	}
	s.logger.Info("Scheduled: sailing date generation (daily at 2:00 AM)")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) reconciliationJob() {
	started := time.Now()
	report := s.reconciliationSvc.RunAll()
	s.logger.WithFields(logrus.Fields{
		"duration": time.Since(started).String(),
		"errors":   report.Errors,
	}).Debug("Reconciliation job finished")
}

// generateSailingDatesJob keeps a rolling 30-day horizon of sailing dates
// materialized for every active schedule.
func (s *CronService) generateSailingDatesJob() {
	schedules, err := s.scheduleRepo.GetActive()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list schedules for date generation")
		return
	}

	from := time.Now()
	to := from.AddDate(0, 0, 30)
	total := 0
	for _, schedule := range schedules {
		if schedule.Status != models.ScheduleStatusActive {
			continue
		}
		created, err := s.scheduleSvc.GenerateDates(schedule.ID, from, to)
		if err != nil {
			s.logger.WithError(err).WithField("schedule_id", schedule.ID).Error("Failed to generate sailing dates")
			continue
		}
		total += created
	}
	s.logger.WithField("created", total).Info("Sailing date generation job finished")
}
