package cron

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// HealthManager runs the periodic primary-node health check
type HealthManager struct {
	cron      *cron.Cron
	cronEntry cron.EntryID
	checkFunc func(ctx context.Context)
	mutex     sync.RWMutex
	isRunning bool
	interval  time.Duration
}

// NewHealthManager schedules checkFunc at the given interval and starts the
// scheduler. A non-positive interval disables the check entirely.
func NewHealthManager(checkFunc func(ctx context.Context), interval time.Duration) *HealthManager {
	manager := &HealthManager{
		checkFunc: checkFunc,
		interval:  interval,
	}

	if interval <= 0 {
		log.Println("[Health] Periodic health check disabled")
		return manager
	}

	manager.cron = cron.New()
	manager.cron.Start()

	entryID, err := manager.cron.AddFunc("@every "+interval.String(), manager.runCheck)
	if err != nil {
		log.Printf("[Health] Failed to schedule health check: %v", err)
	} else {
		manager.cronEntry = entryID
		log.Printf("[Health] Scheduled primary health check every %s", interval)
	}

	return manager
}

// runCheck performs one health check, skipping if the previous one is still
// in flight
func (hm *HealthManager) runCheck() {
	hm.mutex.Lock()
	if hm.isRunning {
		hm.mutex.Unlock()
		log.Println("[Health] Check already in progress, skipping...")
		return
	}
	hm.isRunning = true
	hm.mutex.Unlock()

	defer func() {
		hm.mutex.Lock()
		hm.isRunning = false
		hm.mutex.Unlock()
	}()

	if hm.checkFunc != nil {
		hm.checkFunc(context.Background())
	}
}

// Stop stops the scheduler and waits for an in-flight check to finish
func (hm *HealthManager) Stop() {
	if hm.cron != nil {
		<-hm.cron.Stop().Done()
		log.Println("[Health] Health manager stopped")
	}
}

// GetNextRun returns the next scheduled run time
func (hm *HealthManager) GetNextRun() time.Time {
	if hm.cron != nil {
		entries := hm.cron.Entries()
		if len(entries) > 0 {
			return entries[0].Next
		}
	}
	return time.Time{}
}

// IsRunning returns whether a check is currently in progress
func (hm *HealthManager) IsRunning() bool {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()
	return hm.isRunning
}

// GetInterval returns the configured check interval
func (hm *HealthManager) GetInterval() time.Duration {
	return hm.interval
}
