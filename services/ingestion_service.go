package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/order-ingestion-service/models"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
	"github.com/yashrajoria/order-ingestion-service/pkg/metrics"
	"github.com/yashrajoria/order-ingestion-service/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Gateway is the payment gateway as seen by ingestion.
type Gateway interface {
	// ListLineItems returns the session's line items in the order the
	// gateway delivers them.
	ListLineItems(ctx context.Context, sessionID string) ([]models.LineItem, error)
}

// sideEffectTimeout bounds each post-commit publish/archive call. Those calls
// run detached from the caller's context.
const sideEffectTimeout = 5 * time.Second

// IngestionService turns payment confirmations into orders.
type IngestionService struct {
	store     repository.Store
	gateway   Gateway
	publisher OrderEventPublisher
	archiver  PayloadArchiver
	prom      *metrics.Metrics
	cw        *awspkg.MetricsClient
	logger    *zap.Logger
	tracer    trace.Tracer
	timeout   time.Duration
	now       func() time.Time
}

type IngestionOption func(*IngestionService)

// WithEventPublisher publishes order.created after every committed order.
func WithEventPublisher(p OrderEventPublisher) IngestionOption {
	return func(s *IngestionService) { s.publisher = p }
}

// WithArchiver stores the raw confirmation payload of every committed order.
func WithArchiver(a PayloadArchiver) IngestionOption {
	return func(s *IngestionService) { s.archiver = a }
}

func WithMetrics(prom *metrics.Metrics, cw *awspkg.MetricsClient) IngestionOption {
	return func(s *IngestionService) {
		s.prom = prom
		s.cw = cw
	}
}

// WithTimeout bounds a whole Ingest call. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) IngestionOption {
	return func(s *IngestionService) { s.timeout = d }
}

func NewIngestionService(store repository.Store, gateway Gateway, logger *zap.Logger, opts ...IngestionOption) *IngestionService {
	s := &IngestionService{
		store:   store,
		gateway: gateway,
		logger:  logger,
		tracer:  otel.Tracer("order-ingestion/services"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// orderLine is a validated line item ready to be written.
type orderLine struct {
	itemID      string
	size        string
	productName string
	quantity    int
	unitAmount  int64
}

// Ingest creates the order for a completed checkout exactly once per
// session id. A redelivered confirmation returns the stored order without
// touching stock. Errors are classified by ErrMalformedInput, ErrOutOfStock,
// ErrGateway and ErrStorage; nothing is retried here.
func (s *IngestionService) Ingest(ctx context.Context, c *models.PaymentConfirmation) (*models.Order, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "IngestionService.Ingest",
		trace.WithAttributes(attribute.String("checkout.session_id", sessionIDOf(c))))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	order, outcome, err := s.ingest(ctx, c)
	s.observe(ctx, outcome, s.now().Sub(start))

	log := s.logger.With(zap.String("session_id", sessionIDOf(c)), zap.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		switch outcome {
		case metrics.OutcomeMalformed, metrics.OutcomeOutOfStock:
			log.Warn("payment confirmation rejected", zap.Error(err))
		default:
			log.Error("payment confirmation ingestion failed", zap.Error(err))
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", order.OrderNumber.String()))
	log.Info("payment confirmation ingested",
		zap.String("order_number", order.OrderNumber.String()),
		zap.Int("items", len(order.OrderItems)),
	)
	return order, nil
}

func (s *IngestionService) ingest(ctx context.Context, c *models.PaymentConfirmation) (*models.Order, string, error) {
	order, err := s.buildOrder(c)
	if err != nil {
		return nil, metrics.OutcomeMalformed, err
	}

	existing, err := s.store.Orders().FindBySessionID(ctx, c.SessionID)
	switch {
	case err == nil:
		return existing, metrics.OutcomeDuplicate, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, metrics.OutcomeStorageErr, fmt.Errorf("%w: look up session %s: %w", ErrStorage, c.SessionID, err)
	}

	items, err := s.listLineItems(ctx, c.SessionID)
	if err != nil {
		return nil, metrics.OutcomeGatewayErr, fmt.Errorf("%w: list line items for %s: %w", ErrGateway, c.SessionID, err)
	}

	lines, err := validateLineItems(items, order.Currency)
	if err != nil {
		return nil, metrics.OutcomeMalformed, err
	}

	err = s.writeOrder(ctx, order, lines)
	switch {
	case err == nil:
		s.afterCommit(ctx, order, c.RawPayload)
		return order, metrics.OutcomeCreated, nil
	case errors.Is(err, ErrOutOfStock):
		return nil, metrics.OutcomeOutOfStock, err
	case errors.Is(err, repository.ErrDuplicateSession):
		// Lost the race against a concurrent delivery of the same session.
		winner, ferr := s.store.Orders().FindBySessionID(ctx, c.SessionID)
		if ferr != nil {
			return nil, metrics.OutcomeStorageErr, fmt.Errorf("%w: re-read session %s after duplicate insert: %w", ErrStorage, c.SessionID, ferr)
		}
		return winner, metrics.OutcomeRaceResolved, nil
	default:
		return nil, metrics.OutcomeStorageErr, fmt.Errorf("%w: write order for %s: %w", ErrStorage, c.SessionID, err)
	}
}

// buildOrder validates the confirmation's top-level fields and maps them
// onto a new PAID order. No I/O happens here.
func (s *IngestionService) buildOrder(c *models.PaymentConfirmation) (*models.Order, error) {
	if c == nil {
		return nil, malformed("nil confirmation")
	}
	if c.SessionID == "" {
		return nil, malformed("missing checkout session id")
	}
	if c.Metadata.StoreUserID == "" {
		return nil, malformed("session %s: missing %s in metadata", c.SessionID, models.MetadataStoreUserID)
	}
	currency, err := models.NormalizeCurrency(c.Currency)
	if err != nil {
		return nil, malformed("session %s: %v", c.SessionID, err)
	}
	if c.AmountTotal < 0 || c.AmountDiscount < 0 {
		return nil, malformed("session %s: negative amount", c.SessionID)
	}

	return &models.Order{
		OrderNumber:             uuid.New(),
		StripeCheckoutSessionID: c.SessionID,
		StripePaymentIntentID:   c.PaymentIntentID,
		StripeCustomerID:        c.CustomerID,
		StoreUserID:             c.Metadata.StoreUserID,
		CustomerName:            c.Metadata.CustomerName,
		CustomerEmail:           c.Metadata.CustomerEmail,
		TotalPrice:              currency.FromMinorUnits(c.AmountTotal),
		AmountDiscounted:        currency.FromMinorUnits(c.AmountDiscount),
		Currency:                currency,
		OrderStatus:             models.OrderStatusPaid,
		PromoCodeID:             c.Metadata.PromoCodeID,
		CreatedAt:               s.now().UTC(),
	}, nil
}

func (s *IngestionService) listLineItems(ctx context.Context, sessionID string) ([]models.LineItem, error) {
	ctx, span := s.tracer.Start(ctx, "Gateway.ListLineItems")
	defer span.End()

	items, err := s.gateway.ListLineItems(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list line items")
		return nil, err
	}
	span.SetAttributes(attribute.Int("line_items", len(items)))
	return items, nil
}

// validateLineItems checks every line before any write so malformed input
// never opens a transaction.
func validateLineItems(items []models.LineItem, currency models.Currency) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, malformed("checkout session has no line items")
	}
	lines := make([]orderLine, 0, len(items))
	for i, li := range items {
		if !li.SKU.Valid() {
			return nil, malformed("line %d (%s): SKU metadata missing itemId or size", i, li.ProductName)
		}
		if li.Quantity <= 0 || li.Quantity > math.MaxInt32 {
			return nil, malformed("line %d (%s): invalid quantity %d", i, li.ProductName, li.Quantity)
		}
		if li.UnitAmount < 0 {
			return nil, malformed("line %d (%s): negative unit amount", i, li.ProductName)
		}
		if li.Currency != "" {
			lc, err := models.NormalizeCurrency(li.Currency)
			if err != nil || lc != currency {
				return nil, malformed("line %d (%s): currency %q does not match order currency %s", i, li.ProductName, li.Currency, currency)
			}
		}
		lines = append(lines, orderLine{
			itemID:      li.SKU.ItemID,
			size:        li.SKU.Size,
			productName: li.ProductName,
			quantity:    int(li.Quantity),
			unitAmount:  li.UnitAmount,
		})
	}
	return lines, nil
}

// writeOrder creates the order, decrements stock line by line and records
// the order items in one transaction. Any failure rolls all of it back.
func (s *IngestionService) writeOrder(ctx context.Context, order *models.Order, lines []orderLine) error {
	ctx, span := s.tracer.Start(ctx, "Store.Transaction")
	defer span.End()

	items := make([]models.OrderItem, 0, len(lines))
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		for _, line := range lines {
			ok, err := tx.Variants().DecrementStock(ctx, line.itemID, line.size, line.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &OutOfStockError{
					ItemID:      line.itemID,
					Size:        line.size,
					ProductName: line.productName,
					Requested:   line.quantity,
				}
			}

			item := models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.OrderNumber,
				ItemID:    line.itemID,
				Size:      line.size,
				Quantity:  line.quantity,
				UnitPrice: order.Currency.FromMinorUnits(line.unitAmount),
			}
			if err := tx.Orders().CreateItem(ctx, &item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction rolled back")
		return err
	}
	order.OrderItems = items
	return nil
}

// afterCommit publishes and archives the new order. Failures are logged and
// counted but never undo or fail the ingestion.
func (s *IngestionService) afterCommit(ctx context.Context, order *models.Order, raw []byte) {
	log := s.logger.With(
		zap.String("session_id", order.StripeCheckoutSessionID),
		zap.String("order_number", order.OrderNumber.String()),
	)
	base := context.WithoutCancel(ctx)

	if s.publisher != nil {
		pctx, cancel := context.WithTimeout(base, sideEffectTimeout)
		if err := s.publisher.PublishOrderCreated(pctx, models.NewOrderCreatedEvent(order, s.now())); err != nil {
			log.Error("failed to publish order.created", zap.Error(err))
			s.countSideEffectError("publish")
		}
		cancel()
	}

	if s.archiver != nil && len(raw) > 0 {
		actx, cancel := context.WithTimeout(base, sideEffectTimeout)
		if err := s.archiver.Archive(actx, ArchiveKey(order), raw); err != nil {
			log.Error("failed to archive confirmation payload", zap.Error(err))
			s.countSideEffectError("archive")
		}
		cancel()
	}
}

// ArchiveKey is the object key the raw confirmation of order is stored under.
func ArchiveKey(order *models.Order) string {
	return fmt.Sprintf("checkout-sessions/%s/%s.json",
		order.CreatedAt.UTC().Format("2006/01/02"), order.StripeCheckoutSessionID)
}

func (s *IngestionService) observe(ctx context.Context, outcome string, elapsed time.Duration) {
	if s.prom != nil {
		s.prom.Ingestions.WithLabelValues(outcome).Inc()
		s.prom.IngestionDuration.Observe(elapsed.Seconds())
	}
	if !s.cw.IsEnabled() {
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	dims := map[string]string{"Service": "order-ingestion", "Outcome": outcome}
	var name string
	switch outcome {
	case metrics.OutcomeCreated:
		name = awspkg.MetricOrdersIngested
	case metrics.OutcomeDuplicate, metrics.OutcomeRaceResolved:
		name = awspkg.MetricOrdersDuplicate
	case metrics.OutcomeOutOfStock:
		name = awspkg.MetricOrdersOutOfStock
	default:
		name = awspkg.MetricIngestionFailures
	}
	if err := s.cw.RecordCount(cctx, name, dims); err != nil {
		s.logger.Warn("cloudwatch metric failed", zap.Error(err))
	}
	if err := s.cw.RecordLatency(cctx, awspkg.MetricIngestionLatency, elapsed, dims); err != nil {
		s.logger.Warn("cloudwatch metric failed", zap.Error(err))
	}
}

func (s *IngestionService) countSideEffectError(kind string) {
	if s.prom != nil {
		s.prom.SideEffectErrors.WithLabelValues(kind).Inc()
	}
}

func sessionIDOf(c *models.PaymentConfirmation) string {
	if c == nil {
		return ""
	}
	return c.SessionID
}
