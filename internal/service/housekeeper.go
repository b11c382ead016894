package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/service/cache"
)

// Housekeeper periodically evicts stale cache entries and prunes run history
type Housekeeper struct {
	cache             *cache.Service
	monitoringService *MonitoringService
	retentionDays     int
	interval          time.Duration
	logger            *zap.Logger
	ticker            *time.Ticker
	done              chan struct{}
	stopOnce          sync.Once
}

func NewHousekeeper(cacheService *cache.Service, monitoringService *MonitoringService, retentionDays int, interval time.Duration, logger *zap.Logger) *Housekeeper {
	return &Housekeeper{
		cache:             cacheService,
		monitoringService: monitoringService,
		retentionDays:     retentionDays,
		interval:          interval,
		logger:            logger,
		done:              make(chan struct{}),
	}
}

// Start begins the periodic cleanup
func (h *Housekeeper) Start(ctx context.Context) {
	h.ticker = time.NewTicker(h.interval)
	go func() {
		h.logger.Info("Starting housekeeper", zap.Duration("interval", h.interval))
		for {
			select {
			case <-h.done:
				h.logger.Info("Housekeeper stopped")
				return
			case <-ctx.Done():
				h.logger.Info("Housekeeper stopped due to context cancellation")
				return
			case <-h.ticker.C:
				h.RunOnce(ctx)
			}
		}
	}()
}

// Stop may be called more than once
func (h *Housekeeper) Stop() {
	h.stopOnce.Do(func() {
		if h.ticker != nil {
			h.ticker.Stop()
		}
		close(h.done)
	})
}

// RunOnce performs one cleanup pass
func (h *Housekeeper) RunOnce(ctx context.Context) {
	evicted, err := h.cache.EvictExpired(ctx)
	if err != nil {
		h.logger.Error("Failed to evict cache entries", zap.Error(err))
	}

	pruned, err := h.monitoringService.CleanupOldData(ctx, h.retentionDays)
	if err != nil {
		h.logger.Error("Failed to cleanup old data", zap.Error(err))
	}

	h.logger.Debug("Housekeeping completed",
		zap.Int64("cache_evicted", evicted),
		zap.Int64("history_pruned", pruned))
}
