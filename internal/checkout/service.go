package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	compensationTimeout    = 5 * time.Second
	providerPaymentIDIndex = "provider_payment_id"

	outcomeSettled = "settled"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type signatureVerifier interface {
	Verify(providerOrderID, paymentID, signature string) bool
}

type stockStore interface {
	TryDecrement(ctx context.Context, variantID uuid.UUID, amount int) (*inventory.Result, error)
	Increment(ctx context.Context, variantID uuid.UUID, amount int) (*inventory.Result, error)
}

type catalogReader interface {
	LookupVariants(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]catalog.VariantSnapshot, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Dispatch(ctx context.Context, to notifications.Recipient, summary notifications.OrderSummary)
}

type settleMetrics interface {
	ObserveSettle(outcome string, duration time.Duration)
	IncCompensation(ok bool)
	IncPersistRetry()
}

// Service settles verified payment confirmations into orders.
type Service interface {
	Settle(ctx context.Context, input SettleInput) (*models.Order, error)
}

// PaymentConfirmation is the client-supplied proof of payment.
type PaymentConfirmation struct {
	ProviderOrderID string
	PaymentID       string
	Signature       string
}

// LineItemInput is one submitted cart line. Name, weight and price are the
// client's view and are re-derived from the catalog.
type LineItemInput struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Name      string
	Weight    string
	Price     decimal.Decimal
	Quantity  int
}

// SettleInput carries one checkout attempt.
type SettleInput struct {
	UserID          uuid.UUID
	Email           string
	Confirmation    PaymentConfirmation
	LineItems       []LineItemInput
	ShippingAddress types.ShippingAddress
	ClaimedTotal    decimal.Decimal
}

// ServiceParams wires the settlement collaborators. ReplayGuard, Notifier and
// Metrics are optional.
type ServiceParams struct {
	Config      config.CheckoutConfig
	Logger      *logger.Logger
	Tx          txRunner
	Verifier    signatureVerifier
	Inventory   stockStore
	Catalog     catalogReader
	Orders      orders.Repository
	Outbox      outboxPublisher
	ReplayGuard ReplayGuard
	Notifier    notifier
	Metrics     settleMetrics
	Now         func() time.Time
}

type service struct {
	cfg         config.CheckoutConfig
	shippingFee decimal.Decimal
	logg        *logger.Logger
	tx          txRunner
	verifier    signatureVerifier
	inventory   stockStore
	catalog     catalogReader
	orders      orders.Repository
	outbox      outboxPublisher
	replay      ReplayGuard
	notifier    notifier
	metrics     settleMetrics
	now         func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(p ServiceParams) (Service, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Verifier == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if p.Inventory == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Config.RequestTimeout <= 0 {
		return nil, fmt.Errorf("checkout request timeout must be positive")
	}

	fee := decimal.Zero
	if raw := strings.TrimSpace(p.Config.ShippingFee); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse shipping fee: %w", err)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("shipping fee must be non-negative")
		}
		fee = parsed
	}

	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		cfg:         p.Config,
		shippingFee: fee,
		logg:        p.Logger,
		tx:          p.Tx,
		verifier:    p.Verifier,
		inventory:   p.Inventory,
		catalog:     p.Catalog,
		orders:      p.Orders,
		outbox:      p.Outbox,
		replay:      p.ReplayGuard,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
		now:         now,
	}, nil
}

// reservedLine is a decrement that must be undone if the attempt is rejected.
type reservedLine struct {
	VariantID uuid.UUID
	Quantity  int
}

// Settle runs one checkout attempt: Received, Verified, Reserved per line,
// then Settled. Any failure leaves the attempt Rejected with stock restored.
func (s *service) Settle(ctx context.Context, input SettleInput) (*models.Order, error) {
	started := time.Now()
	input = normalizeInput(input)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"provider_order_id": input.Confirmation.ProviderOrderID,
		"payment_id":        input.Confirmation.PaymentID,
		"user_id":           input.UserID.String(),
	})
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	s.logg.Info(ctx, "checkout received")

	order, err := s.settle(ctx, input)
	if err != nil {
		err = s.classify(ctx, err)
		code := pkgerrors.CodeOf(err)
		s.observe(string(code), started)
		dump := pkgerrors.Dump(err)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"code":        string(code),
			"error_chain": dump.Chain,
		}), "checkout rejected: "+err.Error())
		return nil, err
	}

	s.observe(outcomeSettled, started)
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "checkout settled")

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, notifications.Recipient{
			Email: input.Email,
			Name:  input.ShippingAddress.Name,
		}, notifications.SummaryFromOrder(order))
	}
	return order, nil
}

func (s *service) settle(ctx context.Context, input SettleInput) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	conf := input.Confirmation
	if !s.verifier.Verify(conf.ProviderOrderID, conf.PaymentID, conf.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "payment signature does not match")
	}
	s.logg.Info(ctx, "checkout verified")

	claimRef, err := s.claim(ctx, conf)
	if err != nil {
		return nil, err
	}
	order, err := s.reserveAndPersist(ctx, input)
	if err != nil && claimRef != "" {
		s.releaseClaim(ctx, conf.PaymentID, claimRef)
	}
	return order, err
}

// claim returns the reference this attempt holds the payment id under, or ""
// when no claim was taken. An unreachable guard is tolerated; the unique index
// on provider_payment_id still applies.
func (s *service) claim(ctx context.Context, conf PaymentConfirmation) (string, error) {
	if s.replay == nil {
		return "", nil
	}
	claimRef := conf.ProviderOrderID + ":" + uuid.NewString()
	ok, err := s.replay.Claim(ctx, conf.PaymentID, claimRef)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logg.Warn(ctx, "replay guard unavailable: "+err.Error())
		return "", nil
	}
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "payment confirmation already used")
	}
	return claimRef, nil
}

func (s *service) releaseClaim(ctx context.Context, paymentID, claimRef string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := s.replay.Release(releaseCtx, paymentID, claimRef); err != nil {
		s.logg.Warn(releaseCtx, "release payment claim: "+err.Error())
	}
}

func (s *service) reserveAndPersist(ctx context.Context, input SettleInput) (*models.Order, error) {
	quote, err := s.price(ctx, input)
	if err != nil {
		return nil, err
	}

	reserved := make([]reservedLine, 0, len(input.LineItems))
	for _, item := range input.LineItems {
		res, err := s.inventory.TryDecrement(ctx, item.VariantID, item.Quantity)
		if err != nil {
			s.compensate(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, reservedLine{VariantID: item.VariantID, Quantity: item.Quantity})
		reservedCtx := s.logg.WithFields(ctx, map[string]any{
			"variant_id": item.VariantID.String(),
			"quantity":   item.Quantity,
			"remaining":  res.Remaining,
		})
		s.logg.Debug(reservedCtx, "checkout reserved")
	}

	order, err := s.persist(ctx, input, quote)
	if err != nil {
		s.compensate(ctx, reserved)
		return nil, err
	}
	return order, nil
}

func (s *service) price(ctx context.Context, input SettleInput) (*Quote, error) {
	ids := make([]uuid.UUID, 0, len(input.LineItems))
	for _, item := range input.LineItems {
		ids = append(ids, item.VariantID)
	}
	snapshots, err := s.catalog.LookupVariants(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog prices")
	}
	quote, err := buildQuote(input.LineItems, snapshots, s.shippingFee)
	if err != nil {
		return nil, err
	}
	if len(quote.Drift) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "price_drift", quote.Drift), "client line prices differ from catalog")
	}
	if !quote.matches(input.ClaimedTotal) {
		details := TotalMismatchDetails{
			Claimed:  input.ClaimedTotal.StringFixed(2),
			Computed: quote.Total.StringFixed(2),
		}
		if s.cfg.RejectTotalMismatch {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "claimed total does not match catalog total").
				WithDetails(details)
		}
		s.logg.Warn(s.logg.WithField(ctx, "total_mismatch", details), "claimed total differs from catalog total")
	}
	return quote, nil
}

var errDuplicatePayment = pkgerrors.New(pkgerrors.CodeConflict, "payment already settled")

// persist writes the order, its line items and the order_settled event in one
// transaction, retrying transient failures with exponential backoff.
func (s *service) persist(ctx context.Context, input SettleInput, quote *Quote) (*models.Order, error) {
	backoff := retry.WithMaxRetries(s.cfg.PersistRetries, retry.NewExponential(persistBackoff(s.cfg.PersistBackoff)))

	var (
		attempt int
		order   *models.Order
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 && s.metrics != nil {
			s.metrics.IncPersistRetry()
		}
		candidate := s.buildOrder(input, quote)
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.orders.WithTx(tx).Create(ctx, candidate); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, settledEvent(candidate))
		})
		if err == nil {
			order = candidate
			return nil
		}
		if db.IsUniqueViolation(err, providerPaymentIDIndex) {
			return errDuplicatePayment
		}
		if ctx.Err() != nil {
			return err
		}
		attemptCtx := s.logg.WithField(ctx, "attempt", attempt)
		s.logg.Warn(attemptCtx, "persist order failed: "+err.Error())
		return retry.RetryableError(err)
	})
	if err != nil {
		if errors.Is(err, errDuplicatePayment) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already settled")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "persist order")
	}
	return order, nil
}

func persistBackoff(d time.Duration) time.Duration {
	if d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}

func (s *service) buildOrder(input SettleInput, quote *Quote) *models.Order {
	return &models.Order{
		UserID:            input.UserID,
		OrderedAt:         s.now(),
		Status:            enums.OrderStatusProcessing,
		TotalAmount:       quote.Total,
		ShippingAddress:   input.ShippingAddress,
		ProviderOrderID:   input.Confirmation.ProviderOrderID,
		ProviderPaymentID: input.Confirmation.PaymentID,
		ProviderSignature: input.Confirmation.Signature,
		Items:             quote.lines(),
	}
}

func settledEvent(order *models.Order) outbox.DomainEvent {
	items := make([]payloads.OrderSettledItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payloads.OrderSettledItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Weight:    item.Weight,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.UserRoleCustomer)},
		OccurredAt:    order.OrderedAt,
		Data: payloads.OrderSettledEvent{
			OrderID:           order.ID,
			UserID:            order.UserID,
			ProviderOrderID:   order.ProviderOrderID,
			ProviderPaymentID: order.ProviderPaymentID,
			TotalAmount:       order.TotalAmount.StringFixed(2),
			Items:             items,
			OrderedAt:         order.OrderedAt,
		},
	}
}

// compensate re-increments every reserved line in reverse order. It runs on a
// context detached from the request so an expired deadline cannot strand stock.
func (s *service) compensate(ctx context.Context, reserved []reservedLine) {
	if len(reserved) == 0 {
		return
	}
	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs error
	for i := len(reserved) - 1; i >= 0; i-- {
		line := reserved[i]
		_, err := s.inventory.Increment(restoreCtx, line.VariantID, line.Quantity)
		if s.metrics != nil {
			s.metrics.IncCompensation(err == nil)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("restock variant %s by %d: %w", line.VariantID, line.Quantity, err))
		}
	}
	if errs != nil {
		s.logg.Error(restoreCtx, "checkout compensation incomplete", errs)
		return
	}
	s.logg.Info(s.logg.WithField(restoreCtx, "lines", len(reserved)), "checkout compensated")
}

// classify maps an expired or abandoned attempt to TIMEOUT and untyped errors
// to INTERNAL_ERROR.
func (s *service) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "checkout timed out")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if ctx.Err() != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "checkout timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle checkout")
}

func (s *service) observe(outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSettle(outcome, time.Since(started))
	}
}

func normalizeInput(input SettleInput) SettleInput {
	input.Email = strings.TrimSpace(input.Email)
	input.Confirmation.ProviderOrderID = strings.TrimSpace(input.Confirmation.ProviderOrderID)
	input.Confirmation.PaymentID = strings.TrimSpace(input.Confirmation.PaymentID)
	input.Confirmation.Signature = strings.TrimSpace(input.Confirmation.Signature)
	input.ShippingAddress = input.ShippingAddress.Normalize()
	return input
}

func validateInput(input SettleInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	conf := input.Confirmation
	if conf.ProviderOrderID == "" || conf.PaymentID == "" || conf.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "providerOrderId, paymentId and signature are required")
	}
	if len(input.LineItems) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	for i, item := range input.LineItems {
		if item.ProductID == uuid.Nil || item.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lineItems[%d]: productId and variantId are required", i))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lineItems[%d]: quantity must be positive", i))
		}
	}
	if input.ClaimedTotal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "totalAmount must be non-negative")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return nil
}
