package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
)

// ==============================================
// REPOSITORY INTERFACE (for testing)
// ==============================================

type OrderRepositoryInterface interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, tx pgx.Tx, o *models.Order) error
	RecordPaymentEvent(ctx context.Context, tx pgx.Tx, ev *models.PaymentEvent) error
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
}

// PaymentGateway opens hosted payment sessions.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error)
}

// SignatureVerifier authenticates gateway callbacks.
type SignatureVerifier interface {
	Verify(signature string, rawPayload []byte) bool
}

// Activator turns a completed order into a subscription.
type Activator interface {
	Activate(ctx context.Context, order *models.Order) (*models.Subscription, error)
}

// ==============================================
// SERVICE
// ==============================================

type OrderService struct {
	orders    OrderRepositoryInterface
	gateway   PaymentGateway
	verifier  SignatureVerifier
	activator Activator
	appURL    string
	log       zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewOrderService(
	orders OrderRepositoryInterface,
	gateway PaymentGateway,
	verifier SignatureVerifier,
	activator Activator,
	appURL string,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		gateway:   gateway,
		verifier:  verifier,
		activator: activator,
		appURL:    strings.TrimRight(appURL, "/"),
		log:       log.With().Str("component", "orders").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ==============================================
// CREATE ORDER
// ==============================================

func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// server-owned keys never come from the client
	meta := req.Metadata.WithoutReserved()
	if d := strings.TrimSpace(req.Domain); d != "" {
		meta[models.MetadataKeyDomain] = strings.ToLower(d)
	}

	duration := req.DurationMonths
	if duration < 1 {
		duration = models.DefaultDurationMonths
	}

	order := &models.Order{
		ID:             s.newID(),
		UserID:         req.UserID,
		PlanID:         req.PlanID,
		PlanName:       req.PlanName,
		PlanType:       req.PlanType,
		Price:          req.Price,
		DurationMonths: duration,
		Status:         models.OrderStatusPending,
		Metadata:       meta,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	metrics.IncOrderCreated()
	log := logging.With(ctx, s.log)
	log.Info().
		Str("order_id", order.ID).
		Str("plan", order.PlanName).
		Int64("price", order.Price).
		Msg("order created")

	return order, nil
}

// ==============================================
// PAYMENT SESSION
// ==============================================

// RequestPaymentSession asks the gateway for a payment page and records the
// outcome on the order. A gateway rejection fails the order; a timeout leaves
// it PENDING since the gateway may still have opened the session.
func (s *OrderService) RequestPaymentSession(ctx context.Context, orderID string, customer models.Customer) (*models.Order, error) {
	log := logging.With(ctx, s.log).With().Str("order_id", orderID).Logger()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, models.NewValidationError("status", fmt.Sprintf("order is %s, not awaiting payment", order.Status))
	}

	session, gwErr := s.gateway.CreateSession(ctx, models.SessionRequest{
		OrderID:   order.ID,
		Product:   order.PlanName,
		Price:     order.Price,
		Customer:  customer,
		ReturnURL: s.appURL + "/payment/success?orderId=" + url.QueryEscape(order.ID),
		CancelURL: s.appURL + "/payment/cancel?orderId=" + url.QueryEscape(order.ID),
		NotifyURL: s.appURL + "/api/v1/payment/callback",
	})

	if gwErr != nil && models.IsTimeout(gwErr) {
		log.Error().Err(gwErr).Msg("payment session timed out, order left pending")
		return nil, gwErr
	}
	if gwErr == nil && (session == nil || session.RedirectURL == "") {
		gwErr = fmt.Errorf("%w: gateway returned no redirect target", models.ErrPaymentGateway)
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := s.orders.GetOrderByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if locked.Metadata == nil {
		locked.Metadata = models.Metadata{}
	}

	if gwErr != nil {
		if locked.Status == models.OrderStatusPending {
			locked.Status = models.OrderStatusFailed
			locked.Metadata[models.MetadataKeyFailureReason] = "payment session could not be created"
			if err := s.orders.UpdateOrder(ctx, tx, locked); err != nil {
				return nil, err
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("failed to commit transaction: %w", err)
			}
			metrics.IncOrderTransition(string(models.OrderStatusFailed))
		}
		log.Error().Err(gwErr).Str("status", string(locked.Status)).Msg("payment session failed")
		if !errors.Is(gwErr, models.ErrPaymentGateway) {
			gwErr = fmt.Errorf("%w: %v", models.ErrPaymentGateway, gwErr)
		}
		return nil, gwErr
	}

	// a callback may already have moved the order on; keep its status
	if locked.Status == models.OrderStatusPending {
		locked.Status = models.OrderStatusProcessing
	}
	locked.PaymentID = &session.SessionID
	locked.PaymentURL = &session.RedirectURL
	locked.Metadata.SetPaymentDetails(models.PaymentDetails{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
	})

	if err := s.orders.UpdateOrder(ctx, tx, locked); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if locked.Status == models.OrderStatusProcessing {
		metrics.IncOrderTransition(string(models.OrderStatusProcessing))
	}
	log.Info().Str("session_id", session.SessionID).Str("status", string(locked.Status)).Msg("payment session created")
	return locked, nil
}

// Checkout opens an order and immediately requests its payment session.
func (s *OrderService) Checkout(ctx context.Context, req models.CreateOrderRequest, customer models.Customer) (*models.CheckoutResponse, error) {
	order, err := s.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err = s.RequestPaymentSession(ctx, order.ID, customer)
	if err != nil {
		return nil, err
	}

	details, _ := order.Metadata.PaymentDetails()
	resp := &models.CheckoutResponse{
		Success: true,
		OrderID: order.ID,
		Status:  order.Status,
		Details: details,
	}
	if order.PaymentURL != nil {
		resp.PaymentURL = *order.PaymentURL
	}
	return resp, nil
}

// ==============================================
// CALLBACK
// ==============================================

// ApplyCallback authenticates a gateway notification and applies the status
// transition it carries. The order row stays locked while its status is read
// and written, so duplicate or concurrent callbacks observe each other.
func (s *OrderService) ApplyCallback(ctx context.Context, signature string, rawBody []byte) (*models.CallbackResult, error) {
	log := logging.With(ctx, s.log)

	if !s.verifier.Verify(signature, rawBody) {
		metrics.IncCallback("rejected")
		log.Warn().Str("event", "security").Int("body_len", len(rawBody)).Msg("callback signature mismatch")
		return nil, models.ErrInvalidSignature
	}

	payload, err := models.ParseCallbackPayload(rawBody)
	if err != nil {
		metrics.IncCallback("malformed")
		return nil, err
	}
	log = log.With().
		Str("event", "payment").
		Str("order_id", payload.ReferenceID).
		Str("trx_id", string(payload.TrxID)).
		Int("status_code", int(payload.StatusCode)).
		Logger()

	if _, err := uuid.Parse(payload.ReferenceID); err != nil {
		metrics.IncCallback("unknown_order")
		log.Warn().Msg("callback for unknown order")
		return nil, models.ErrOrderNotFound
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := s.orders.GetOrderByIDForUpdate(ctx, tx, payload.ReferenceID)
	if err != nil {
		if models.IsNotFoundError(err) {
			metrics.IncCallback("unknown_order")
			log.Warn().Msg("callback for unknown order")
		}
		return nil, err
	}

	if err := s.orders.RecordPaymentEvent(ctx, tx, &models.PaymentEvent{
		OrderID:    order.ID,
		TrxID:      string(payload.TrxID),
		StatusCode: payload.StatusCode,
		Payload:    rawBody,
	}); err != nil {
		return nil, err
	}

	result := &models.CallbackResult{OrderID: order.ID, Status: order.Status}

	target, ok := payload.StatusCode.TargetStatus()
	switch {
	case !ok:
		metrics.IncCallback("ignored")
		log.Info().Str("status", string(order.Status)).Msg("callback acknowledged without transition")
	case order.Status == target:
		metrics.IncCallback("duplicate")
		log.Info().Str("status", string(order.Status)).Msg("duplicate callback")
	case !order.Status.CanTransitionTo(target):
		metrics.IncCallback("ignored")
		log.Warn().Str("status", string(order.Status)).Str("target", string(target)).Msg("callback would regress terminal order, ignored")
	default:
		if order.Metadata == nil {
			order.Metadata = models.Metadata{}
		}
		order.Status = target
		if payload.TrxID != "" {
			order.Metadata[models.MetadataKeyTransactionID] = string(payload.TrxID)
		}
		if target == models.OrderStatusCompleted {
			paidAt := s.now()
			order.PaidAt = &paidAt
		}
		if err := s.orders.UpdateOrder(ctx, tx, order); err != nil {
			return nil, err
		}
		result.Status = target
		result.Transitioned = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if !result.Transitioned {
		return result, nil
	}

	metrics.IncCallback("applied")
	metrics.IncOrderTransition(string(result.Status))
	log.Info().Str("status", string(result.Status)).Msg("order status updated")

	if result.Status == models.OrderStatusCompleted {
		// the payment is committed; a gateway hang-up must not stop activation
		s.activate(context.WithoutCancel(ctx), order, log)
	}
	return result, nil
}

// activate runs after the COMPLETED transition has been committed; its
// failures are reported and never undo the payment.
func (s *OrderService) activate(ctx context.Context, order *models.Order, log zerolog.Logger) {
	sub, err := s.activator.Activate(ctx, order)
	switch {
	case err == nil:
		log.Info().Str("subscription_id", sub.ID).Time("end_date", sub.EndDate).Msg("subscription activated")
	case errors.Is(err, models.ErrConflict):
		log.Info().Msg("subscription already exists for order")
	default:
		metrics.IncActivationFailure("error")
		log.Error().Err(err).Bool("needs_reconciliation", true).Msg("subscription activation failed after payment")
	}
}

// ==============================================
// QUERIES
// ==============================================

// GetOrder returns one of the user's orders. Orders owned by someone else
// are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, models.ErrOrderNotFound
	}
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) (*models.OrderListResponse, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.OrderListResponse{Orders: orders, Total: len(orders)}, nil
}
