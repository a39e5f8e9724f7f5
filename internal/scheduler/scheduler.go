package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the courier batch on a fixed interval in loop mode. The
// job itself is a plain func so the scheduler knows nothing about pipelines.
type Scheduler struct {
	cron            *cron.Cron
	entryID         cron.EntryID
	intervalMinutes int
	job             func()
	wg              sync.WaitGroup
	isRunning       bool
	mu              sync.RWMutex
}

// New creates a new scheduler
func New(intervalMinutes int, job func()) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithSeconds()),
		intervalMinutes: intervalMinutes,
		job:             job,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.intervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.runJob)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.intervalMinutes)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RunOnce runs the job once outside the schedule (for manual triggering)
func (s *Scheduler) RunOnce() {
	s.runJob()
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Wait waits for any in-flight job to complete
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runJob() {
	s.wg.Add(1)
	defer s.wg.Done()
	s.job()
}
