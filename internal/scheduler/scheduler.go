package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"property-portal/internal/service"
)

// Scheduler reconciles the search replica index on a daily schedule
type Scheduler struct {
	cron      *cron.Cron
	svc       *service.Service
	runTime   string
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(svc *service.Service, runTime string) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		svc:     svc,
		runTime: runTime,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	cronSpec := s.parseRunTime(s.runTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("Scheduler: Starting daily reindex job...")
		indexed, err := s.svc.Reindex()
		if err != nil {
			log.Printf("Scheduler: Daily reindex failed: %v", err)
			return
		}
		log.Printf("Scheduler: Daily reindex completed, %d properties indexed", indexed)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with daily reindex at %s (cron: %s)", s.runTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// RunNow immediately executes the reindex job (for manual trigger)
func (s *Scheduler) RunNow() (int, error) {
	log.Println("Scheduler: Manual trigger - starting reindex job...")
	return s.svc.Reindex()
}

// parseRunTime converts HH:MM format to cron specification
// Example: "03:00" -> "0 3 * * *" (run at 3:00 AM every day)
func (s *Scheduler) parseRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 3:00 AM if parsing fails
	log.Printf("Scheduler: Failed to parse time '%s', using default 03:00", timeStr)
	return "0 3 * * *"
}
