// Package cache is the short-lived read-through cache in front of dashboard
// queries. Entries expire lazily: a read past the TTL deletes the entry and
// reports a miss.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/metrics"
)

// Entry is one cached payload
type Entry struct {
	CompanyID string     `json:"company_id"`
	DataType  string     `json:"data_type"`
	Data      []byte     `json:"data"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store persists entries. Put must replace any existing entry for the key
// atomically so readers see the old or the new entry, never a mix.
type Store interface {
	Get(ctx context.Context, companyID, dataType string) (*Entry, error)
	Put(ctx context.Context, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, companyID, dataType string) error
	Clear(ctx context.Context) (int64, error)
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Key addresses an entry. Start and End, when set, must match the stored
// range for a hit.
type Key struct {
	CompanyID string
	DataType  string
	Start     *time.Time
	End       *time.Time
}

type Service struct {
	store  Store
	ttls   map[string]time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewService(store Store, ttls map[string]time.Duration, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, ttls: ttls, now: now, logger: logger}
}

// TTL returns the time to live configured for a data type
func (s *Service) TTL(dataType string) (time.Duration, bool) {
	ttl, ok := s.ttls[dataType]
	return ttl, ok && ttl > 0
}

// MaxTTL is the longest configured TTL
func (s *Service) MaxTTL() time.Duration {
	var max time.Duration
	for _, ttl := range s.ttls {
		if ttl > max {
			max = ttl
		}
	}
	return max
}

// Get returns the cached payload, or false on a miss. Store failures are
// logged and count as a miss.
func (s *Service) Get(ctx context.Context, key Key) ([]byte, bool) {
	ttl, ok := s.TTL(key.DataType)
	if !ok {
		return nil, false
	}

	entry, err := s.store.Get(ctx, key.CompanyID, key.DataType)
	if err != nil {
		s.logger.Warn("Cache read failed",
			zap.String("company_id", key.CompanyID),
			zap.String("data_type", key.DataType),
			zap.Error(err))
		metrics.CacheRequests.WithLabelValues(key.DataType, "error").Inc()
		return nil, false
	}
	if entry == nil {
		metrics.CacheRequests.WithLabelValues(key.DataType, "miss").Inc()
		return nil, false
	}

	if s.now().Sub(entry.CreatedAt) > ttl {
		if err := s.store.Delete(ctx, key.CompanyID, key.DataType); err != nil {
			s.logger.Warn("Failed to delete expired cache entry",
				zap.String("company_id", key.CompanyID),
				zap.String("data_type", key.DataType),
				zap.Error(err))
		}
		metrics.CacheRequests.WithLabelValues(key.DataType, "expired").Inc()
		return nil, false
	}

	if !sameDay(entry.StartDate, key.Start) || !sameDay(entry.EndDate, key.End) {
		metrics.CacheRequests.WithLabelValues(key.DataType, "miss").Inc()
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues(key.DataType, "hit").Inc()
	return entry.Data, true
}

// Put stores value as JSON, replacing any entry for the key
func (s *Service) Put(ctx context.Context, key Key, value interface{}) error {
	ttl, ok := s.TTL(key.DataType)
	if !ok {
		return fmt.Errorf("no ttl configured for cache data type %q", key.DataType)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return s.store.Put(ctx, &Entry{
		CompanyID: key.CompanyID,
		DataType:  key.DataType,
		Data:      data,
		StartDate: key.Start,
		EndDate:   key.End,
		CreatedAt: s.now().UTC(),
	}, ttl)
}

// Clear drops every entry
func (s *Service) Clear(ctx context.Context) (int64, error) {
	return s.store.Clear(ctx)
}

// EvictExpired removes entries older than the longest TTL
func (s *Service) EvictExpired(ctx context.Context) (int64, error) {
	return s.store.EvictOlderThan(ctx, s.now().Add(-s.MaxTTL()))
}

// GetOrCompute serves key from the cache, or runs compute and caches its
// result. Failing to write the cache does not fail the call.
func GetOrCompute[T any](ctx context.Context, s *Service, key Key, compute func(ctx context.Context) (T, error)) (T, bool, error) {
	var out T
	if data, ok := s.Get(ctx, key); ok {
		if err := json.Unmarshal(data, &out); err == nil {
			return out, true, nil
		}
		s.logger.Warn("Discarding undecodable cache entry",
			zap.String("company_id", key.CompanyID),
			zap.String("data_type", key.DataType))
	}

	out, err := compute(ctx)
	if err != nil {
		return out, false, err
	}
	if err := s.Put(ctx, key, out); err != nil {
		s.logger.Warn("Cache write failed",
			zap.String("company_id", key.CompanyID),
			zap.String("data_type", key.DataType),
			zap.Error(err))
	}
	return out, false, nil
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
