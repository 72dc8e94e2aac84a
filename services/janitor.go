package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/phishguard/utils"
)

// StartNotificationJanitor periodically deletes notifications older than
// retentionDays. It does nothing when retentionDays is 0. The returned func
// stops the loop and waits for it to exit.
func StartNotificationJanitor(ns *NotificationService, retentionDays int, interval time.Duration) (stop func()) {
	if retentionDays <= 0 {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Hour
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if _, err := ns.DeleteOlderThan(retentionDays); err != nil {
					utils.Logger.Warn("notification cleanup failed", zap.Error(err))
				}
			}
		}
	}()
	utils.Logger.Info("notification janitor started",
		zap.Int("retention_days", retentionDays), zap.Duration("interval", interval))

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
