package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gateway event names. Only captured and paid events settle a top-up; a
// failed payment attempt is recorded, as the order can still be paid by a
// later attempt.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

const defaultDedupeTTL = 72 * time.Hour

// gatewayEnvelope is the subset of the Razorpay webhook body we read.
type gatewayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity gatewayEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity gatewayEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type gatewayEntity struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Notes   json.RawMessage `json:"notes"` // object, or [] when empty
}

func (e *gatewayEntity) transactionID() (uuid.UUID, bool) {
	if len(e.Notes) == 0 || !bytes.HasPrefix(bytes.TrimSpace(e.Notes), []byte("{")) {
		return uuid.Nil, false
	}
	var notes struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(e.Notes, &notes); err != nil || notes.TransactionID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(notes.TransactionID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// references returns our transaction id and the gateway order id.
func (env *gatewayEnvelope) references() (*uuid.UUID, string) {
	var (
		txID    *uuid.UUID
		orderID string
	)
	if p := env.Payload.Payment; p != nil {
		if id, ok := p.Entity.transactionID(); ok {
			txID = &id
		}
		orderID = p.Entity.OrderID
	}
	if o := env.Payload.Order; o != nil {
		if txID == nil {
			if id, ok := o.Entity.transactionID(); ok {
				txID = &id
			}
		}
		if orderID == "" {
			orderID = o.Entity.ID
		}
	}
	return txID, orderID
}

// gatewayReconciler implements ports.GatewayReconciler.
type gatewayReconciler struct {
	ledger    ports.LedgerService
	sigSvc    ports.SignatureService
	eventRepo ports.GatewayEventRepository
	cache     ports.ProcessedEventCache
	secret    string
	provider  string
	dedupeTTL time.Duration
	log       zerolog.Logger
}

// NewGatewayReconciler creates a new gateway reconciler. cache may be nil.
func NewGatewayReconciler(
	ledger ports.LedgerService,
	sigSvc ports.SignatureService,
	eventRepo ports.GatewayEventRepository,
	cache ports.ProcessedEventCache,
	secret string,
	provider string,
	dedupeTTL time.Duration,
	log zerolog.Logger,
) ports.GatewayReconciler {
	if provider == "" {
		provider = domain.DefaultGatewayProvider
	}
	if dedupeTTL <= 0 {
		dedupeTTL = defaultDedupeTTL
	}
	return &gatewayReconciler{
		ledger:    ledger,
		sigSvc:    sigSvc,
		eventRepo: eventRepo,
		cache:     cache,
		secret:    secret,
		provider:  provider,
		dedupeTTL: dedupeTTL,
		log:       log,
	}
}

// Reconcile verifies the callback signature over the raw body and applies
// the event to the ledger. Replays are reported as DUPLICATE, not errors.
func (s *gatewayReconciler) Reconcile(ctx context.Context, rawPayload []byte, signature string) (*ports.ReconcileResult, error) {
	if s.secret == "" || signature == "" || !s.sigSvc.Verify(s.secret, rawPayload, signature) {
		s.log.Warn().Int("bytes", len(rawPayload)).Msg("gateway: signature verification failed")
		return nil, apperror.ErrInvalidSignature()
	}

	var env gatewayEnvelope
	if err := json.Unmarshal(rawPayload, &env); err != nil {
		return nil, apperror.Validation("malformed gateway payload")
	}

	txID, orderID := env.references()
	result := &ports.ReconcileResult{EventType: env.Event, TransactionID: txID}

	if txID == nil {
		result.Outcome = domain.GatewayOutcomeIgnored
		s.record(ctx, result, orderID, rawPayload)
		return result, nil
	}

	var err error
	switch env.Event {
	case EventPaymentCaptured, EventOrderPaid:
		result.Outcome, err = s.settle(ctx, *txID, domain.GatewayOutcomeCredited, func() error {
			_, err := s.ledger.CompleteTopup(ctx, *txID, orderID, s.provider)
			return err
		})
	default:
		result.Outcome = domain.GatewayOutcomeIgnored
	}
	if err != nil {
		s.log.Error().Err(err).Str("tx_id", txID.String()).Str("event", env.Event).Msg("gateway: reconcile failed")
		return nil, err
	}

	s.record(ctx, result, orderID, rawPayload)

	s.log.Info().
		Str("tx_id", txID.String()).
		Str("event", env.Event).
		Str("outcome", string(result.Outcome)).
		Msg("gateway: event reconciled")

	return result, nil
}

// settle runs apply unless the transaction is already known to be settled.
func (s *gatewayReconciler) settle(ctx context.Context, txID uuid.UUID, outcome domain.GatewayOutcome, apply func() error) (domain.GatewayOutcome, error) {
	key := txID.String()
	if s.cache != nil {
		processed, err := s.cache.IsProcessed(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("tx_id", key).Msg("gateway: dedupe cache lookup failed, falling through to ledger")
		}
		if processed {
			return domain.GatewayOutcomeDuplicate, nil
		}
	}

	if err := apply(); err != nil {
		if !apperror.HasCode(err, apperror.CodeAlreadyProcessed) {
			return "", err
		}
		outcome = domain.GatewayOutcomeDuplicate
	}

	if s.cache != nil {
		if err := s.cache.MarkProcessed(ctx, key, s.dedupeTTL); err != nil {
			s.log.Warn().Err(err).Str("tx_id", key).Msg("gateway: failed to cache processed event")
		}
	}
	return outcome, nil
}

// record appends the event to the gateway log. Failures are logged only.
func (s *gatewayReconciler) record(ctx context.Context, result *ports.ReconcileResult, orderID string, raw []byte) {
	if s.eventRepo == nil {
		return
	}
	event := &domain.GatewayEvent{
		ID:            uuid.New(),
		Provider:      s.provider,
		EventType:     result.EventType,
		TransactionID: result.TransactionID,
		Outcome:       result.Outcome,
		Payload:       string(raw),
		CreatedAt:     time.Now().UTC(),
	}
	if orderID != "" {
		event.GatewayOrderID = &orderID
	}
	if err := s.eventRepo.Create(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn().Err(err).Str("event", result.EventType).Msg("gateway: failed to record event")
	}
}
