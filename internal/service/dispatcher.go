package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Dispatch is the acknowledgement returned by a fire-and-forget trigger
type Dispatch struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	CompanyIDs []string `json:"companyIds"`
}

// Dispatcher calls the cron endpoint without waiting for it. Delivery is at
// most once and nothing reports completion back; callers poll sync-status.
type Dispatcher struct {
	client  *resty.Client
	secret  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(publicURL, secret string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	client := resty.New().
		SetBaseURL(strings.TrimRight(publicURL, "/")).
		SetTimeout(timeout)
	return &Dispatcher{
		client:  client,
		secret:  secret,
		timeout: timeout,
		logger:  logger,
	}
}

// Trigger starts the request in the background and returns immediately
func (d *Dispatcher) Trigger(companyIDs []string, force bool) Dispatch {
	req := d.client.R().
		SetQueryParam("secret", d.secret).
		SetQueryParam("trigger", TriggerManual)
	if len(companyIDs) > 0 {
		req.SetQueryParam("companyIds", strings.Join(companyIDs, ","))
	}
	if force {
		req.SetQueryParam("force", "true")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		resp, err := req.SetContext(ctx).Get("/api/cron/sync-analytics")
		if err != nil {
			d.logger.Error("Dispatched sync request failed", zap.Error(err))
			return
		}
		if resp.IsError() {
			d.logger.Warn("Dispatched sync request rejected",
				zap.Int("status", resp.StatusCode()),
				zap.String("body", string(resp.Body())))
			return
		}
		d.logger.Info("Dispatched sync request completed", zap.Duration("duration", resp.Time()))
	}()

	ids := companyIDs
	if ids == nil {
		ids = []string{}
	}
	return Dispatch{
		Status:     "started",
		Message:    "Sync started in background",
		CompanyIDs: ids,
	}
}
