// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/models"
)

// Manager runs the all-users sync on a schedule and serializes it with
// runs triggered through the cron endpoint.
type Manager struct {
	syncer   *Synchronizer
	enabled  bool
	interval time.Duration

	lastSync time.Time
	running  bool
	mu       sync.RWMutex
	syncMu   sync.Mutex // one all-users run at a time
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a Manager. The ticker only runs when the schedule is enabled.
func NewManager(syncer *Synchronizer, cfg *config.SyncConfig) *Manager {
	return &Manager{
		syncer:   syncer,
		enabled:  cfg.ScheduleEnabled,
		interval: cfg.Interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduled sync loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	if !m.enabled || m.interval <= 0 {
		logging.Info().Msg("Scheduled call history sync disabled")
		return nil
	}

	m.wg.Add(1)
	go m.syncLoop(ctx)
	logging.Info().Dur("interval", m.interval).Msg("Scheduled call history sync started")
	return nil
}

// Stop ends the loop and waits for an in-flight scheduled run.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if _, err := m.SyncAll(ctx, TriggerScheduled); err != nil {
				logging.Error().Err(err).Msg("Scheduled call history sync failed")
			}
		}
	}
}

// SyncAll runs the all-users sync, waiting for any run already in progress.
func (m *Manager) SyncAll(ctx context.Context, trigger string) (*models.CronSyncReport, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	report, err := m.syncer.SyncAll(ctx, trigger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.lastSync = report.Timestamp
	m.mu.Unlock()
	return report, nil
}

// LastSyncTime returns when the last all-users run finished.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}
