package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Catalog Sync Job
// ---------------------------------------------------------------------------

// JobStatus represents the status of a catalog sync job
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusFailed  JobStatus = "FAILED"
)

// Trigger says what started a job
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
)

// CatalogSyncJob records one catalog sync run
type CatalogSyncJob struct {
	ID          uuid.UUID
	Trigger     Trigger
	Status      JobStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	TotalCount   int
	CreatedCount int
	SkippedCount int
	FailedCount  int
}

func newCatalogSyncJob(trigger Trigger) *CatalogSyncJob {
	return &CatalogSyncJob{
		ID:        uuid.New(),
		Trigger:   trigger,
		Status:    JobStatusRunning,
		StartedAt: time.Now(),
	}
}

// Complete copies the sync result into the job
func (j *CatalogSyncJob) Complete(result *integration.SyncResult) {
	now := time.Now()
	j.CompletedAt = &now
	j.TotalCount = result.TotalCount
	j.CreatedCount = result.CreatedCount
	j.SkippedCount = result.SkippedCount
	j.FailedCount = result.FailedCount

	switch result.Status {
	case integration.SyncStatusSuccess:
		j.Status = JobStatusSuccess
	case integration.SyncStatusPartial:
		j.Status = JobStatusPartial
	default:
		j.Status = JobStatusFailed
	}
}

// Fail marks the job as failed
func (j *CatalogSyncJob) Fail(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err.Error()
}

// CatalogSyncer runs one catalog sync
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context) (*integration.SyncResult, error)
}

// ---------------------------------------------------------------------------
// CatalogSyncSchedulerConfig
// ---------------------------------------------------------------------------

// CatalogSyncSchedulerConfig holds configuration for the catalog sync scheduler
type CatalogSyncSchedulerConfig struct {
	// CronSchedule is a standard five-field cron expression or descriptor (@hourly, @every 30m)
	CronSchedule string
	// JobTimeout is the maximum time a single sync may run
	JobTimeout time.Duration
	// MaxHistory bounds the in-memory job history
	MaxHistory int
}

// DefaultCatalogSyncSchedulerConfig returns default configuration: daily at 03:00
func DefaultCatalogSyncSchedulerConfig() CatalogSyncSchedulerConfig {
	return CatalogSyncSchedulerConfig{
		CronSchedule: "0 3 * * *",
		JobTimeout:   15 * time.Minute,
		MaxHistory:   50,
	}
}

// Validate validates the configuration
func (c *CatalogSyncSchedulerConfig) Validate() error {
	if c.JobTimeout <= 0 || c.MaxHistory < 0 {
		return ErrInvalidConfig
	}
	if _, err := cron.ParseStandard(c.CronSchedule); err != nil {
		return fmt.Errorf("%w: cron schedule %q: %v", ErrInvalidConfig, c.CronSchedule, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// CatalogSyncScheduler
// ---------------------------------------------------------------------------

// CatalogSyncScheduler runs catalog syncs on a cron schedule. At most one
// sync runs at a time per process, whether started by cron or SyncCatalog.
type CatalogSyncScheduler struct {
	config CatalogSyncSchedulerConfig
	syncer CatalogSyncer
	logger *zap.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.Mutex
	isRunning bool
	baseCtx   context.Context
	cancel    context.CancelFunc

	// runMu is held for the duration of a sync
	runMu sync.Mutex

	historyMu sync.RWMutex
	history   []*CatalogSyncJob
}

// NewCatalogSyncScheduler creates a new catalog sync scheduler
func NewCatalogSyncScheduler(config CatalogSyncSchedulerConfig, syncer CatalogSyncer, logger *zap.Logger) (*CatalogSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &CatalogSyncScheduler{
		config:  config,
		syncer:  syncer,
		logger:  logger,
		baseCtx: context.Background(),
		history: make([]*CatalogSyncJob, 0, config.MaxHistory),
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := s.cron.AddFunc(config.CronSchedule, func() {
		s.run(TriggerCron)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.entryID = id

	return s, nil
}

// Start starts the cron loop. Jobs inherit ctx until Stop is called.
func (s *CatalogSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.isRunning = true
	s.cron.Start()

	s.logger.Info("Catalog sync scheduler started",
		zap.String("schedule", s.config.CronSchedule),
		zap.Time("next_run", s.NextRun()),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop stops scheduling new runs, cancels a running sync and waits for it
// to return or for ctx to expire.
func (s *CatalogSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	if cancel != nil {
		cancel()
	}

	select {
	case <-done.Done():
		s.logger.Info("Catalog sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Catalog sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the cron loop is active
func (s *CatalogSyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// NextRun returns the next scheduled run, zero if the scheduler is stopped
func (s *CatalogSyncScheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// SyncCatalog runs a manual sync on the caller's goroutine, whether or not
// the cron loop is started, and returns its result. It returns
// ErrSyncAlreadyRunning when another sync is in progress.
func (s *CatalogSyncScheduler) SyncCatalog(ctx context.Context) (*integration.SyncResult, error) {
	return s.runWith(ctx, TriggerManual)
}

func (s *CatalogSyncScheduler) run(trigger Trigger) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	_, _ = s.runWith(ctx, trigger)
}

func (s *CatalogSyncScheduler) runWith(ctx context.Context, trigger Trigger) (*integration.SyncResult, error) {
	if !s.runMu.TryLock() {
		s.logger.Warn("Catalog sync skipped, previous run still in progress", zap.String("trigger", string(trigger)))
		return nil, ErrSyncAlreadyRunning
	}
	defer s.runMu.Unlock()

	job := newCatalogSyncJob(trigger)
	log := s.logger.With(zap.String("job_id", job.ID.String()), zap.String("trigger", string(trigger)))
	log.Info("Catalog sync job started")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.syncer.SyncCatalog(jobCtx)
	if err != nil {
		job.Fail(err)
		log.Error("Catalog sync job failed", zap.Error(err))
		s.addToHistory(job)
		return nil, err
	}

	job.Complete(result)
	log.Info("Catalog sync job completed",
		zap.String("status", string(job.Status)),
		zap.Int("total", job.TotalCount),
		zap.Int("created", job.CreatedCount),
		zap.Int("skipped", job.SkippedCount),
		zap.Int("failed", job.FailedCount),
		zap.Duration("duration", job.CompletedAt.Sub(job.StartedAt)),
	)
	s.addToHistory(job)
	return result, nil
}

func (s *CatalogSyncScheduler) addToHistory(job *CatalogSyncJob) {
	if s.config.MaxHistory == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*CatalogSyncJob{job}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}

// GetJobHistory returns recent jobs, newest first
func (s *CatalogSyncScheduler) GetJobHistory(limit int) []*CatalogSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*CatalogSyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
