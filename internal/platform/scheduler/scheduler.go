package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/shopkosh/coin_wallet_service/internal/core/ports/services"
)

// ExpiryScheduler drives the coin expiry job from inside the process. It is
// a fallback for deployments without an external cron; when an external cron
// hits /internal/cron/expire-coins the interval can be left at zero and the
// scheduler never starts.
type ExpiryScheduler struct {
	walletService portssvc.WalletSvcFacade
	interval      time.Duration
	batchLimit    int
	logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewExpiryScheduler(walletService portssvc.WalletSvcFacade, interval time.Duration, batchLimit int, logger *slog.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		walletService: walletService,
		interval:      interval,
		batchLimit:    batchLimit,
		logger:        logger,
		stop:          make(chan struct{}),
	}
}

// Start begins the background loop. A non-positive interval disables it.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 {
		s.logger.Info("Expiry scheduler disabled")
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.run()

	s.logger.Info("Expiry scheduler started", slog.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight run to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.logger.Info("Expiry scheduler stopped")
	}
}

func (s *ExpiryScheduler) run() {
	defer s.wg.Done()

	// Run once on start so a restart never delays overdue expirations by
	// a full interval.
	s.runOnce()

	for {
		select {
		case <-s.ticker.C:
			s.runOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *ExpiryScheduler) runOnce() {
	ctx := context.Background()

	candidates, err := s.walletService.ExpireEarnedCoins(ctx, s.batchLimit)
	if err != nil {
		s.logger.Error("Expiry scan failed", slog.String("error", err.Error()))
		return
	}
	if len(candidates) == 0 {
		return
	}

	expired := 0
	skipped := 0
	for _, candidate := range candidates {
		result, err := s.walletService.ApplyExpiry(ctx, candidate.EntryID, candidate.CustomerID)
		if err != nil {
			s.logger.Error("Failed to apply expiry",
				slog.String("entry_id", candidate.EntryID),
				slog.String("customer_id", candidate.CustomerID),
				slog.String("error", err.Error()))
			skipped++
			continue
		}
		if result.Applied {
			expired++
		} else {
			skipped++
		}
	}

	s.logger.Info("Expiry run completed",
		slog.Int("scanned", len(candidates)),
		slog.Int("expired", expired),
		slog.Int("skipped", skipped))
}
