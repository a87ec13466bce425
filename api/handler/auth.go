package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/internal/session"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	authUC "github.com/mandrin-rain/broker-bridge/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc       *authUC.UseCase
	sessions *session.Manager
}

func NewAuthHandler(uc *authUC.UseCase, sessions *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		sessions:    sessions,
	}
}

// Login redirects the browser to the Kite Connect login page.
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	ctx.Redirect(h.uc.LoginURL(), fasthttp.StatusFound)
}

// Callback completes the Kite login: exchanges the request token,
// stores the access token in a fresh session, and sends the user home.
func (h *AuthHandler) Callback(ctx *fasthttp.RequestCtx) {
	requestToken := string(ctx.QueryArgs().Peek("request_token"))
	if requestToken == "" {
		h.logger.Warn("kite callback without request_token")
		ctx.Redirect("/login", fasthttp.StatusFound)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	accessToken, userID, err := h.uc.CompleteLogin(stdCtx, requestToken)
	if err != nil {
		h.logger.Error("kite login failed", zap.Error(err))
		ctx.Redirect("/login", fasthttp.StatusFound)
		return
	}

	sess, err := h.sessions.Issue(stdCtx, ctx)
	if err != nil {
		h.logger.Error("session issue failed", zap.Error(err))
		ctx.Redirect("/login", fasthttp.StatusFound)
		return
	}
	sess.AccessToken = accessToken
	sess.UserID = userID
	if err := h.sessions.Update(stdCtx, sess); err != nil {
		h.logger.Error("session store failed", zap.Error(err))
		ctx.Redirect("/login", fasthttp.StatusFound)
		return
	}

	ctx.Redirect("/home", fasthttp.StatusFound)
}

// Logout drops the session and returns the user to the login page.
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if sess, err := h.sessions.FromRequest(stdCtx, ctx); err == nil {
		h.sessions.Invalidate(stdCtx, ctx, sess)
	} else {
		h.sessions.ClearCookie(ctx)
	}
	ctx.Redirect("/login", fasthttp.StatusFound)
}
