package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/internal/infrastructure/monitor"
	"github.com/mandrin-rain/broker-bridge/internal/services"
	"github.com/mandrin-rain/broker-bridge/internal/ws"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	"github.com/mandrin-rain/broker-bridge/usecase/validation"
)

type HealthHandler struct {
	baseHandler
	monitor   *monitor.Monitor
	hub       *ws.Hub
	ticker    *services.TickerService
	validator *validation.Service
}

func NewHealthHandler(mon *monitor.Monitor, hub *ws.Hub, ticker *services.TickerService, validator *validation.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		hub:         hub,
		ticker:      ticker,
		validator:   validator,
	}
}

// Check reports connectivity and stream state. Always 200; degraded
// backends are visible in the payload.
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"postgres":         status.PostgreSQL,
		"redis":            status.Redis,
		"journal":          status.Journal,
		"journal_size":     status.JournalSize,
		"last_check":       status.LastCheck,
		"ticker_connected": h.ticker.IsConnected(),
		"ws_clients":       h.hub.ClientCount(),
		"verdict_cache":    h.validator.CacheSize(),
	})
}
