package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/server/middleware"
	"github.com/ifuryst/agencylens/internal/service"
	"github.com/ifuryst/agencylens/internal/service/provider"
	"github.com/ifuryst/agencylens/pkg/util"
)

type Syncer interface {
	VerifySecret(secret string) error
	Run(ctx context.Context, req service.SyncRequest) (*service.SyncResponse, error)
}

type Triggerer interface {
	Trigger(companyIDs []string, force bool) service.Dispatch
}

type Authorizer interface {
	ManageTargets(ctx context.Context, userID string, globalAdmin bool, companyIDs []string) ([]string, error)
	CanView(ctx context.Context, userID string, globalAdmin bool, companyID string) error
}

type StatusReporter interface {
	Report(ctx context.Context) (*service.StatusReport, error)
}

type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}

type DashboardReader interface {
	Dashboard(ctx context.Context, companyID string, days int) (*service.CompanyDashboard, bool, error)
	Realtime(ctx context.Context, companyID string) (*provider.RealtimeSnapshot, bool, error)
	Portfolio(ctx context.Context) (*service.Portfolio, bool, error)
	ClearCache(ctx context.Context) (int64, error)
}

// Handlers serves the HTTP API
type Handlers struct {
	Sync       Syncer
	Dispatcher Triggerer
	Access     Authorizer
	Status     StatusReporter
	Runs       RunHistory
	Dashboard  DashboardReader
	Logger     *zap.Logger
}

type triggerSyncRequest struct {
	CompanyIDs []string `json:"companyIds"`
	Force      bool     `json:"force"`
}

func (h *Handlers) handleCronSync(c *gin.Context) {
	if err := h.Sync.VerifySecret(c.Query("secret")); err != nil {
		h.fail(c, err)
		return
	}

	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	trigger := service.TriggerHTTP
	if c.Query("trigger") == service.TriggerManual {
		trigger = service.TriggerManual
	}
	resp, err := h.Sync.Run(c.Request.Context(), service.SyncRequest{
		CompanyIDs: util.ParseCSV(c.Query("companyIds")),
		Force:      force,
		Trigger:    trigger,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) handleTriggerSync(c *gin.Context) {
	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	targets, err := h.Access.ManageTargets(c.Request.Context(), c.GetString(middleware.UserIDKey),
		middleware.HasAnyRole(c, service.RoleAdmin), req.CompanyIDs)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.Logger.Info("Manual sync requested",
		zap.String("user_id", c.GetString(middleware.UserIDKey)),
		zap.Strings("company_ids", targets),
		zap.Bool("force", req.Force))
	c.JSON(http.StatusOK, h.Dispatcher.Trigger(targets, req.Force))
}

func (h *Handlers) handleSyncStatus(c *gin.Context) {
	report, err := h.Status.Report(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handlers) handleSyncRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.Runs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handlers) handleClearCache(c *gin.Context) {
	n, err := h.Dashboard.ClearCache(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handlers) handleDashboard(c *gin.Context) {
	companyID := c.Param("companyId")
	if !h.canView(c, companyID) {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(service.DefaultDashboardDays)))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	data, cached, err := h.Dashboard.Dashboard(c.Request.Context(), companyID, days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "cached": cached})
}

func (h *Handlers) handleRealtime(c *gin.Context) {
	companyID := c.Param("companyId")
	if !h.canView(c, companyID) {
		return
	}

	data, cached, err := h.Dashboard.Realtime(c.Request.Context(), companyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "cached": cached})
}

func (h *Handlers) handlePortfolio(c *gin.Context) {
	data, cached, err := h.Dashboard.Portfolio(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "cached": cached})
}

func (h *Handlers) canView(c *gin.Context, companyID string) bool {
	err := h.Access.CanView(c.Request.Context(), c.GetString(middleware.UserIDKey),
		middleware.HasAnyRole(c, service.RoleAdmin), companyID)
	if err != nil {
		h.fail(c, err)
		return false
	}
	return true
}

// fail maps service errors to status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorizedSecret):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrAuthRequired):
		c.JSON(http.StatusFailedDependency, gin.H{"error": err.Error(), "action": "reconnect"})
	default:
		h.Logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", c.GetString(middleware.TraceIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
