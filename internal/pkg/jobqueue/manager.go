package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// TrialSweeper downgrades accounts whose trial has run out.
type TrialSweeper interface {
	SweepExpiredTrials(ctx context.Context) (int, error)
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	sweeper       TrialSweeper
	sweepInterval time.Duration
	trialTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates a manager. sweeper may be nil to disable the trial sweep.
func NewManager(queue *Queue, sweeper TrialSweeper, sweepInterval time.Duration) *Manager {
	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Minute
	}
	return &Manager{
		queue:         queue,
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// InitManager sets the process wide manager once and returns it
func InitManager(queue *Queue, sweeper TrialSweeper, sweepInterval time.Duration) *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(queue, sweeper, sweepInterval)
	})
	return globalManager
}

// GetManager returns the global job queue manager, nil before InitManager
func GetManager() *Manager {
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	if m.sweeper != nil {
		m.trialTicker = time.NewTicker(m.sweepInterval)
		m.wg.Add(1)
		go m.trialWorker(m.trialTicker, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.trialTicker != nil {
		m.trialTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// trialWorker downgrades expired trials on every tick
func (m *Manager) trialWorker(ticker *time.Ticker, stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started trial sweep worker (interval: %s)", m.sweepInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Trial sweep worker stopping")
			return
		case <-ticker.C:
			m.sweepTrialsOnce()
		}
	}
}

func (m *Manager) sweepTrialsOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), m.sweepInterval)
	defer cancel()

	n, err := m.sweeper.SweepExpiredTrials(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Trial sweep error: %v", err)
		return
	}
	if n > 0 {
		log.Infof("[JobQueue Manager] Downgraded %d expired trials", n)
	}
}

// RunTrialSweepOnce exposes a manual trigger for a single trial sweep (admin use).
func (m *Manager) RunTrialSweepOnce() {
	if m.sweeper != nil {
		m.sweepTrialsOnce()
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
