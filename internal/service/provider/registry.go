package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
)

// Registry resolves the adapter for a platform
type Registry struct {
	adapters map[models.Platform]Adapter
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		adapters: make(map[models.Platform]Adapter),
		logger:   logger,
	}
}

// NewDefaultRegistry registers the built-in adapter for each enabled platform
func NewDefaultRegistry(platforms []models.Platform, opts func(models.Platform) Options, logger *zap.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for _, p := range platforms {
		var adapter Adapter
		switch p {
		case models.PlatformAnalytics:
			adapter = NewAnalyticsAdapter(opts(p), logger)
		case models.PlatformSearchConsole:
			adapter = NewSearchConsoleAdapter(opts(p), logger)
		case models.PlatformYouTube:
			adapter = NewYouTubeAdapter(opts(p), logger)
		case models.PlatformLinkedIn:
			adapter = NewLinkedInAdapter(opts(p), logger)
		default:
			return nil, fmt.Errorf("no adapter for platform %s", p)
		}
		if err := r.Register(adapter); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(adapter Adapter) error {
	platform := adapter.Platform()
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("adapter for platform %s already registered", platform)
	}

	r.adapters[platform] = adapter
	r.logger.Info("Metrics adapter registered", zap.String("platform", string(platform)))
	return nil
}

func (r *Registry) Get(platform models.Platform) (Adapter, error) {
	adapter, exists := r.adapters[platform]
	if !exists {
		return nil, fmt.Errorf("adapter for platform %s not found", platform)
	}
	return adapter, nil
}

// Platforms lists registered platforms in canonical order
func (r *Registry) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.AllPlatforms {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Realtime returns the platform's live-activity capability, if it has one
func (r *Registry) Realtime(platform models.Platform) (RealtimeProvider, bool) {
	adapter, exists := r.adapters[platform]
	if !exists {
		return nil, false
	}
	rt, ok := adapter.(RealtimeProvider)
	return rt, ok
}
