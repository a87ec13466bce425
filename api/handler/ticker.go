package handler

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/api/transport"
	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/middleware"
	"github.com/mandrin-rain/broker-bridge/internal/services"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	subscriptionUC "github.com/mandrin-rain/broker-bridge/usecase/subscription"
)

type TickerHandler struct {
	baseHandler
	ticker *services.TickerService
	subs   *subscriptionUC.UseCase
}

func NewTickerHandler(ticker *services.TickerService, subs *subscriptionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TickerHandler {
	return &TickerHandler{
		baseHandler: newBaseHandler(adapter, logger),
		ticker:      ticker,
		subs:        subs,
	}
}

// Connect opens the Kite ticker stream for the current session.
func (h *TickerHandler) Connect(ctx *fasthttp.RequestCtx) {
	sess := middleware.SessionFromCtx(ctx)
	if sess == nil || !sess.HasToken() {
		h.respondError(ctx, domain.ErrNotAuthenticated)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.ticker.Connect(stdCtx, sess); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeUpstream, "ticker connect failed", err))
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"connected": true,
	})
}

// Subscribe registers instrument tokens on the live stream and records
// the subscriptions.
func (h *TickerHandler) Subscribe(ctx *fasthttp.RequestCtx) {
	sess := middleware.SessionFromCtx(ctx)
	if sess == nil || !sess.HasToken() {
		h.respondError(ctx, domain.ErrNotAuthenticated)
		return
	}

	var req transport.SubscribeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "malformed subscribe payload", err))
		return
	}
	if len(req.Tokens) == 0 {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "tokens must not be empty"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.ticker.Subscribe(stdCtx, sess, req.Tokens); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeUpstream, "ticker subscribe failed", err))
		return
	}
	if err := h.subs.SaveAll(stdCtx, req.Tokens); err != nil {
		h.logger.Warn("subscription record failed", zap.Error(err))
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"subscribed": len(req.Tokens),
	})
}

// Subscriptions lists the recorded instrument tokens.
func (h *TickerHandler) Subscriptions(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tokens, err := h.subs.ListTokens(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, tokens)
}

// Disconnect closes the upstream ticker stream.
func (h *TickerHandler) Disconnect(ctx *fasthttp.RequestCtx) {
	h.ticker.Disconnect()
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"connected": false,
	})
}
