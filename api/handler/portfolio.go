package handler

import (
	"context"
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/middleware"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
)

// PortfolioReader is the Kite read surface the portfolio endpoints proxy.
type PortfolioReader interface {
	Holdings(ctx context.Context, accessToken string) (json.RawMessage, error)
	Positions(ctx context.Context, accessToken string) (json.RawMessage, error)
}

// PortfolioHandler proxies portfolio reads straight to Kite without
// local persistence.
type PortfolioHandler struct {
	baseHandler
	broker PortfolioReader
}

func NewPortfolioHandler(broker PortfolioReader, adapter *httpcontext.Adapter, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		baseHandler: newBaseHandler(adapter, logger),
		broker:      broker,
	}
}

func (h *PortfolioHandler) Holdings(ctx *fasthttp.RequestCtx) {
	h.proxy(ctx, h.broker.Holdings)
}

func (h *PortfolioHandler) Positions(ctx *fasthttp.RequestCtx) {
	h.proxy(ctx, h.broker.Positions)
}

func (h *PortfolioHandler) proxy(ctx *fasthttp.RequestCtx, fetch func(context.Context, string) (json.RawMessage, error)) {
	sess := middleware.SessionFromCtx(ctx)
	if sess == nil || !sess.HasToken() {
		h.respondError(ctx, domain.ErrNotAuthenticated)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	data, err := fetch(stdCtx, sess.AccessToken)
	if err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeUpstream, "portfolio fetch failed", err))
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, data)
}
