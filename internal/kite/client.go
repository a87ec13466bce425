package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/config"
)

const (
	versionHeader = "X-Kite-Version"
	version       = "3"
)

// Profile is the lightweight identity payload used for token validation.
type Profile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

// TokenSession is the result of exchanging a request token.
type TokenSession struct {
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token"`
	UserID      string `json:"user_id"`
}

// Client talks to the Kite Connect REST API. All calls honour the
// context deadline when one is set and fall back to the configured
// profile timeout otherwise.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	loginURL  string
	timeout   time.Duration
	http      *fasthttp.Client
	logger    *zap.Logger
}

// NewClient builds a Kite REST client from configuration.
func NewClient(cfg config.KiteConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ProfileTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		baseURL:   cfg.BaseURL,
		loginURL:  cfg.LoginURL,
		timeout:   timeout,
		http: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		logger: logger,
	}
}

// LoginURL returns the Kite Connect login redirect for this API key.
func (c *Client) LoginURL() string {
	return fmt.Sprintf(c.loginURL, c.apiKey)
}

// GenerateSession exchanges a request token for an access token using
// the SHA-256 checksum of api_key + request_token + api_secret.
func (c *Client) GenerateSession(ctx context.Context, requestToken string) (*TokenSession, error) {
	if requestToken == "" {
		return nil, domain.ErrInvalidPayload
	}

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", Checksum(c.apiKey, requestToken, c.apiSecret))

	body, err := c.do(ctx, fasthttp.MethodPost, "/session/token", "", form)
	if err != nil {
		return nil, err
	}

	var session TokenSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetProfile performs the lightweight identity check used to decide
// whether an access token is still valid.
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, "/user/profile", accessToken, nil)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// PlaceOrder submits a regular order and returns the broker order id.
func (c *Client) PlaceOrder(ctx context.Context, accessToken string, order *domain.TradeOrder) (string, error) {
	if err := order.Validate(); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("tradingsymbol", order.Tradingsymbol)
	form.Set("exchange", order.Exchange)
	form.Set("transaction_type", order.TransactionType)
	form.Set("quantity", strconv.Itoa(order.Quantity))
	if order.Price != nil {
		form.Set("price", strconv.FormatFloat(*order.Price, 'f', -1, 64))
	}
	form.Set("order_type", domain.OrderTypeMarket)
	form.Set("product", domain.ProductMIS)

	body, err := c.do(ctx, fasthttp.MethodPost, "/orders/regular", accessToken, form)
	if err != nil {
		return "", err
	}

	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// Holdings returns the raw holdings payload for passthrough to the UI.
func (c *Client) Holdings(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.do(ctx, fasthttp.MethodGet, "/portfolio/holdings", accessToken, nil)
}

// Positions returns the raw positions payload for passthrough to the UI.
func (c *Client) Positions(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.do(ctx, fasthttp.MethodGet, "/portfolio/positions", accessToken, nil)
}

// Instruments downloads the CSV instrument dump for an exchange.
func (c *Client) Instruments(ctx context.Context, exchange string) ([]byte, error) {
	return c.doRaw(ctx, fasthttp.MethodGet, "/instruments/"+exchange, "", nil, false)
}

// do performs a request and unwraps the standard {status,data} envelope.
func (c *Client) do(ctx context.Context, method, path, accessToken string, form url.Values) (json.RawMessage, error) {
	body, err := c.doRaw(ctx, method, path, accessToken, form, true)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doRaw(ctx context.Context, method, path, accessToken string, form url.Values, envelope bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(versionHeader, version)
	if accessToken != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, fmt.Sprintf("token %s:%s", c.apiKey, accessToken))
	}
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(form.Encode())
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)

	if !envelope {
		if status != fasthttp.StatusOK {
			return nil, newAPIError(status, "", string(body))
		}
		return body, nil
	}

	var parsed struct {
		Status    string          `json:"status"`
		Data      json.RawMessage `json:"data"`
		ErrorType string          `json:"error_type"`
		Message   string          `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if status != fasthttp.StatusOK {
			return nil, newAPIError(status, "", string(body))
		}
		return nil, err
	}
	if status != fasthttp.StatusOK || parsed.Status == "error" {
		return nil, newAPIError(status, parsed.ErrorType, parsed.Message)
	}
	return parsed.Data, nil
}

// Checksum computes the SHA-256 hex digest Kite expects during the
// token exchange.
func Checksum(apiKey, requestToken, apiSecret string) string {
	sum := sha256.Sum256([]byte(apiKey + requestToken + apiSecret))
	return hex.EncodeToString(sum[:])
}
