package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
)

const (
	ProductionBaseURL = "https://my.ipaymu.com/api/v2"
	SandboxBaseURL    = "https://sandbox.ipaymu.com/api/v2"

	defaultTimeout = 15 * time.Second
)

// ==============================================
// IPAYMU CLIENT
// ==============================================

type IPaymuClient struct {
	http   *resty.Client
	va     string
	apiKey string
	now    func() time.Time
}

type IPaymuOption func(*IPaymuClient)

// WithBaseURL points the client at another endpoint (tests, proxies).
func WithBaseURL(u string) IPaymuOption {
	return func(c *IPaymuClient) { c.http.SetBaseURL(u) }
}

func WithTimeout(d time.Duration) IPaymuOption {
	return func(c *IPaymuClient) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// NewIPaymuClient builds a client; env "production" selects the live endpoint.
func NewIPaymuClient(va, apiKey, env string, opts ...IPaymuOption) *IPaymuClient {
	base := SandboxBaseURL
	if env == "production" {
		base = ProductionBaseURL
	}

	c := &IPaymuClient{
		http:   resty.New().SetBaseURL(base).SetTimeout(defaultTimeout),
		va:     va,
		apiKey: apiKey,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope[T any] struct {
	Status  int    `json:"Status"`
	Success bool   `json:"Success"`
	Message string `json:"Message"`
	Data    T      `json:"Data"`
}

type sessionData struct {
	SessionID string `json:"SessionID"`
	URL       string `json:"Url"`
}

type channelGroup struct {
	Code        string          `json:"Code"`
	Name        string          `json:"Name"`
	Description string          `json:"Description"`
	Channels    []channelDetail `json:"Channels"`
}

type channelDetail struct {
	Code           string `json:"Code"`
	Name           string `json:"Name"`
	Description    string `json:"Description"`
	Logo           string `json:"Logo"`
	FeatureStatus  string `json:"FeatureStatus"`
	TransactionFee any    `json:"TransactionFee"`
}

func (c *IPaymuClient) headers(method string, body []byte) map[string]string {
	return map[string]string{
		"va":        c.va,
		"signature": sign(method, c.va, c.apiKey, body),
		"timestamp": c.now().UTC().Format("20060102150405"),
	}
}

// CreateSession opens a hosted payment page for an order.
func (c *IPaymuClient) CreateSession(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error) {
	start := time.Now()
	product := req.Product
	if product == "" {
		product = "Hosting"
	}

	form := map[string]string{
		"product[]":     product,
		"qty[]":         "1",
		"price[]":       strconv.FormatInt(req.Price, 10),
		"description[]": product,
		"returnUrl":     req.ReturnURL,
		"notifyUrl":     req.NotifyURL,
		"referenceId":   req.OrderID,
		"buyerName":     req.Customer.Name,
		"buyerEmail":    req.Customer.Email,
	}
	if req.CancelURL != "" {
		form["cancelUrl"] = req.CancelURL
	}
	if req.Customer.Phone != "" {
		form["buyerPhone"] = req.Customer.Phone
	}

	var out envelope[sessionData]
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(SignMethod, nil)).
		SetMultipartFormData(form).
		SetResult(&out).
		SetError(&out).
		Post("/payment")

	session, err := c.sessionFrom(resp, &out, err)
	metrics.ObserveGateway("create_session", time.Since(start).Seconds(), err == nil)
	return session, err
}

func (c *IPaymuClient) sessionFrom(resp *resty.Response, out *envelope[sessionData], err error) (*models.PaymentSession, error) {
	if err != nil {
		return nil, wrapTransportError(err)
	}
	if resp.IsError() || out.Status != 200 {
		msg := out.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("%w: create session rejected: %s", models.ErrPaymentGateway, msg)
	}
	if out.Data.SessionID == "" || out.Data.URL == "" {
		return nil, fmt.Errorf("%w: create session returned no session", models.ErrPaymentGateway)
	}
	return &models.PaymentSession{
		SessionID:   out.Data.SessionID,
		RedirectURL: out.Data.URL,
	}, nil
}

// ListChannels fetches the payment methods enabled for the merchant.
func (c *IPaymuClient) ListChannels(ctx context.Context) ([]models.PaymentChannel, error) {
	start := time.Now()

	var out envelope[[]channelGroup]
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers("GET", nil)).
		SetHeader("Content-Type", "application/json").
		SetResult(&out).
		SetError(&out).
		Get("/payment-channels")

	channels, err := channelsFrom(resp, &out, err)
	metrics.ObserveGateway("list_channels", time.Since(start).Seconds(), err == nil)
	return channels, err
}

func channelsFrom(resp *resty.Response, out *envelope[[]channelGroup], err error) ([]models.PaymentChannel, error) {
	if err != nil {
		return nil, wrapTransportError(err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: list channels: %s", models.ErrPaymentGateway, resp.Status())
	}

	var channels []models.PaymentChannel
	for _, g := range out.Data {
		category, ok := models.ChannelCategoryFor(g.Code)
		if !ok {
			category = models.ChannelCategoryBank
		}
		for _, ch := range g.Channels {
			channels = append(channels, models.PaymentChannel{
				Code:        ch.Code,
				Name:        ch.Name,
				Method:      g.Code,
				Category:    category,
				Logo:        ch.Logo,
				Description: ch.Description,
				Enabled:     ch.FeatureStatus == "active",
				Fee:         ch.TransactionFee,
			})
		}
	}
	return channels, nil
}

// wrapTransportError classifies a failed round trip, tagging timeouts.
func wrapTransportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %v", models.ErrPaymentGateway, models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrPaymentGateway, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Disabled stands in for the gateway when no credentials are configured.
type Disabled struct{}

func (Disabled) CreateSession(context.Context, models.SessionRequest) (*models.PaymentSession, error) {
	return nil, fmt.Errorf("%w: payments are not configured", models.ErrPaymentGateway)
}

func (Disabled) ListChannels(context.Context) ([]models.PaymentChannel, error) {
	return nil, fmt.Errorf("%w: payments are not configured", models.ErrPaymentGateway)
}
