package handler

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/api/transport"
	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/middleware"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	orderUC "github.com/mandrin-rain/broker-bridge/usecase/order"
)

type OrderHandler struct {
	baseHandler
	uc *orderUC.UseCase
}

func NewOrderHandler(uc *orderUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Place submits a regular MIS market order through Kite.
func (h *OrderHandler) Place(ctx *fasthttp.RequestCtx) {
	sess := middleware.SessionFromCtx(ctx)
	if sess == nil {
		h.respondError(ctx, domain.ErrNotAuthenticated)
		return
	}

	var req transport.OrderRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "malformed order payload", err))
		return
	}

	order := &domain.TradeOrder{
		InstrumentToken: req.InstrumentToken,
		Tradingsymbol:   req.Tradingsymbol,
		Exchange:        req.Exchange,
		TransactionType: req.TransactionType,
		Quantity:        req.Quantity,
		Price:           req.Price,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	placed, err := h.uc.Place(stdCtx, sess, order)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusCreated, placed)
}

// List returns every locally recorded order, newest first.
func (h *OrderHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	orders, err := h.uc.List(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, orders)
}
