package scheduler

import (
	"context"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultSaveInterval = 60 * time.Second

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

// Scheduler owns the background loops: the watchdog, the reassurance
// ticker and a periodic flush of the store.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	store       store.StoreInterface
	watchdog    perimeter.WatchdogInterface
	reassurance perimeter.ReassuranceInterface
	metrics     providers.MetricsProviderInterface

	opsMu  sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func (s *Scheduler) Init() {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = group

	group.Go(func() error { return s.watchdog.Run(ctx) })
	if s.config.Reassurance.Enabled || s.config.Sleep.Enabled {
		group.Go(func() error { return s.reassurance.Run(ctx) })
	}
	group.Go(func() error { return s.flushLoop(ctx) })
}

func (s *Scheduler) flushLoop(ctx context.Context) error {
	interval := s.config.Persistence.SaveInterval
	if interval <= 0 {
		interval = defaultSaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				continue
			}
			s.logger.Debugf(providers.TypeStore, "Persisted state to %s", s.config.Persistence.FilePath)
		}
	}
}

// Stop cancels every loop and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	if err := s.group.Wait(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Background loop exited with error: %v", err)
	}
	s.cancel = nil
	s.group = nil
}

func (s *Scheduler) Restore() error {
	return s.store.Load()
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.store.Flush()
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logger.Errorf(providers.TypeStore, "Error while persisting state: %s", err)
		return err
	}
	return nil
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	st store.StoreInterface,
	watchdog perimeter.WatchdogInterface,
	reassurance perimeter.ReassuranceInterface,
	metrics providers.MetricsProviderInterface,
) SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		store:       st,
		watchdog:    watchdog,
		reassurance: reassurance,
		metrics:     metrics,
	}
}
