package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
)

// PageHandler serves the minimal HTML shell. The pages are thin; all
// data flows through the JSON API and the tick WebSocket.
type PageHandler struct {
	baseHandler
}

func NewPageHandler(adapter *httpcontext.Adapter, logger *zap.Logger) *PageHandler {
	return &PageHandler{baseHandler: newBaseHandler(adapter, logger)}
}

func (h *PageHandler) Home(ctx *fasthttp.RequestCtx) {
	h.page(ctx, "Home", `
	<p>Connected to the broker bridge.</p>
	<ul>
		<li><a href="/portfolio">Portfolio</a></li>
		<li><a href="/orders">Orders</a></li>
		<li><a href="/instruments">Instruments</a></li>
	</ul>
	<form method="post" action="/logout"><button type="submit">Logout</button></form>`)
}

func (h *PageHandler) LoginPage(ctx *fasthttp.RequestCtx) {
	h.page(ctx, "Login", `
	<p>Sign in with your Kite account to continue.</p>
	<p><a href="/auth/kite">Login with Kite</a></p>`)
}

func (h *PageHandler) Portfolio(ctx *fasthttp.RequestCtx) {
	h.page(ctx, "Portfolio", `
	<div id="holdings" data-src="/api/portfolio/holdings"></div>
	<div id="positions" data-src="/api/portfolio/positions"></div>`)
}

func (h *PageHandler) Orders(ctx *fasthttp.RequestCtx) {
	h.page(ctx, "Orders", `
	<div id="orders" data-src="/api/orders"></div>`)
}

func (h *PageHandler) Instruments(ctx *fasthttp.RequestCtx) {
	h.page(ctx, "Instruments", `
	<div id="instruments" data-src="/api/instruments/exchanges"></div>`)
}

func (h *PageHandler) page(ctx *fasthttp.RequestCtx, title, body string) {
	ctx.Response.Header.SetContentType("text/html; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(`<!DOCTYPE html>
<html>
<head><title>` + title + ` - Broker Bridge</title></head>
<body>
<h1>` + title + `</h1>` + body + `
</body>
</html>`)
}
