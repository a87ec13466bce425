package handler

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	instrumentUC "github.com/mandrin-rain/broker-bridge/usecase/instrument"
)

const expiryLayout = "2006-01-02"

type InstrumentHandler struct {
	baseHandler
	uc *instrumentUC.UseCase
}

func NewInstrumentHandler(uc *instrumentUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *InstrumentHandler {
	return &InstrumentHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Fetch downloads and stores the instrument dump for an exchange.
func (h *InstrumentHandler) Fetch(ctx *fasthttp.RequestCtx) {
	exchange, ok := ctx.UserValue("exchange").(string)
	if !ok || exchange == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "exchange is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	instruments, err := h.uc.FetchAndStore(stdCtx, exchange)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"exchange": exchange,
		"count":    len(instruments),
	})
}

func (h *InstrumentHandler) Exchanges(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	exchanges, err := h.uc.Exchanges(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, exchanges)
}

func (h *InstrumentHandler) Types(ctx *fasthttp.RequestCtx) {
	exchange := string(ctx.QueryArgs().Peek("exchange"))
	if exchange == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "exchange is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	types, err := h.uc.InstrumentTypes(stdCtx, exchange)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, types)
}

// Names serves the name/token pairs for instrument pickers.
func (h *InstrumentHandler) Names(ctx *fasthttp.RequestCtx) {
	exchange := string(ctx.QueryArgs().Peek("exchange"))
	instrumentType := string(ctx.QueryArgs().Peek("type"))
	if exchange == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "exchange is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	names, err := h.uc.NameTokens(stdCtx, exchange, instrumentType)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, names)
}

// ByUnderlying lists derivative contracts for an underlying, optionally
// filtered to one expiry date (YYYY-MM-DD).
func (h *InstrumentHandler) ByUnderlying(ctx *fasthttp.RequestCtx) {
	underlying, ok := ctx.UserValue("underlying").(string)
	if !ok || underlying == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "underlying is required"))
		return
	}

	var expiry *time.Time
	if raw := string(ctx.QueryArgs().Peek("expiry")); raw != "" {
		parsed, err := time.Parse(expiryLayout, raw)
		if err != nil {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "expiry must be YYYY-MM-DD", err))
			return
		}
		expiry = &parsed
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	instruments, err := h.uc.ByUnderlying(stdCtx, underlying, expiry)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, instruments)
}

func (h *InstrumentHandler) Expiries(ctx *fasthttp.RequestCtx) {
	underlying, ok := ctx.UserValue("underlying").(string)
	if !ok || underlying == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "underlying is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	expiries, err := h.uc.Expiries(stdCtx, underlying)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	formatted := make([]string, 0, len(expiries))
	for _, e := range expiries {
		formatted = append(formatted, e.Format(expiryLayout))
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, formatted)
}
