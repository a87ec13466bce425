package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/mandrin-rain/broker-bridge/api/handler"
	"github.com/mandrin-rain/broker-bridge/internal/ws"
)

type Handlers struct {
	Auth       *apiHandler.AuthHandler
	Session    *apiHandler.SessionHandler
	Order      *apiHandler.OrderHandler
	Portfolio  *apiHandler.PortfolioHandler
	Instrument *apiHandler.InstrumentHandler
	Ticker     *apiHandler.TickerHandler
	Health     *apiHandler.HealthHandler
	Page       *apiHandler.PageHandler
	Hub        *ws.Hub
}

// New wires the routes. The gate wraps every page and API route except
// the login flow, the session introspection endpoints, health, and the
// tick WebSocket.
func New(handlers Handlers, gate func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Login flow
	r.GET("/login", handlers.Page.LoginPage)
	r.GET("/auth/kite", handlers.Auth.Login)
	r.GET("/kite/callback", handlers.Auth.Callback)
	r.POST("/logout", handlers.Auth.Logout)

	// Session introspection, reachable without a session
	r.GET("/api/session/token", handlers.Session.Token)
	r.GET("/api/session/status", handlers.Session.Status)
	r.POST("/api/session/validate", handlers.Session.Validate)

	// Pages
	r.GET("/", gate(handlers.Page.Home))
	r.GET("/home", gate(handlers.Page.Home))
	r.GET("/portfolio", gate(handlers.Page.Portfolio))
	r.GET("/orders", gate(handlers.Page.Orders))
	r.GET("/instruments", gate(handlers.Page.Instruments))

	// Orders
	r.POST("/api/orders", gate(handlers.Order.Place))
	r.GET("/api/orders", gate(handlers.Order.List))

	// Portfolio proxy
	r.GET("/api/portfolio/holdings", gate(handlers.Portfolio.Holdings))
	r.GET("/api/portfolio/positions", gate(handlers.Portfolio.Positions))

	// Instruments
	r.POST("/api/instruments/{exchange}", gate(handlers.Instrument.Fetch))
	r.GET("/api/instruments/exchanges", gate(handlers.Instrument.Exchanges))
	r.GET("/api/instruments/types", gate(handlers.Instrument.Types))
	r.GET("/api/instruments/names", gate(handlers.Instrument.Names))
	r.GET("/api/instruments/underlying/{underlying}", gate(handlers.Instrument.ByUnderlying))
	r.GET("/api/instruments/underlying/{underlying}/expiries", gate(handlers.Instrument.Expiries))

	// Live ticker
	r.POST("/api/ticker/connect", gate(handlers.Ticker.Connect))
	r.POST("/api/ticker/subscribe", gate(handlers.Ticker.Subscribe))
	r.GET("/api/ticker/subscriptions", gate(handlers.Ticker.Subscriptions))
	r.POST("/api/ticker/disconnect", gate(handlers.Ticker.Disconnect))

	// Browser tick stream
	r.GET("/ws/ticker", handlers.Hub.HandleUpgrade)

	return r
}
