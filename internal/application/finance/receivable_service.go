package finance

import (
	"context"
	"time"

	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceivableService drives the account receivable lifecycle
type ReceivableService struct {
	repo   finance.AccountReceivableRepository
	logger *zap.Logger
	clock  func() time.Time
}

// NewReceivableService creates a new ReceivableService
func NewReceivableService(repo finance.AccountReceivableRepository, logger *zap.Logger, opts ...ServiceOption) *ReceivableService {
	o := applyOptions(opts)
	return &ReceivableService{repo: repo, logger: logger, clock: o.clock}
}

// Create creates an open receivable
func (s *ReceivableService) Create(ctx context.Context, req CreateObligationRequest) (*ObligationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receivable", "create",
		telemetry.SpanAttrOrganizationID, req.OrganizationID.String(),
		"document_number", req.DocumentNumber,
	)
	defer span.End()

	params, err := req.params()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ar, err := finance.NewAccountReceivable(params)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.repo.SaveWithEvents(ctx, ar, ar.PullDomainEvents()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("receivable created",
		zap.String("receivable_id", ar.ID.String()),
		zap.String("document_number", ar.DocumentNumber),
		zap.String("amount", ar.Terms.Amount().String()),
	)
	return s.respond(ar)
}

// Get returns a receivable with its payments
func (s *ReceivableService) Get(ctx context.Context, organizationID, id uuid.UUID) (*ObligationResponse, error) {
	ar, err := s.repo.FindByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ar)
}

// RegisterPayment attaches a pending receipt to the receivable
func (s *ReceivableService) RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "register_payment", req.OrganizationID, req.ObligationID, func(ar *finance.AccountReceivable) error {
		payment, err := req.payment(&ar.Obligation)
		if err != nil {
			return err
		}
		return ar.RegisterPayment(payment)
	})
}

// ConfirmPayment confirms a pending receipt and emits ReceivableReceived
func (s *ReceivableService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "confirm_payment", req.OrganizationID, req.ObligationID, func(ar *finance.AccountReceivable) error {
		return ar.ConfirmPayment(req.PaymentID, req.ExternalRef, req.ReceivedBy, s.clock())
	})
}

// CancelPayment cancels a pending receipt
func (s *ReceivableService) CancelPayment(ctx context.Context, req CancelPaymentRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "cancel_payment", req.OrganizationID, req.ObligationID, func(ar *finance.AccountReceivable) error {
		return ar.CancelPayment(req.PaymentID, req.Reason, s.clock())
	})
}

// Cancel cancels the receivable and emits ReceivableCancelled
func (s *ReceivableService) Cancel(ctx context.Context, req CancelObligationRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "cancel", req.OrganizationID, req.ObligationID, func(ar *finance.AccountReceivable) error {
		return ar.Cancel(req.Reason, req.CancelledBy, s.clock())
	})
}

func (s *ReceivableService) mutate(
	ctx context.Context,
	method string,
	organizationID, id uuid.UUID,
	apply func(*finance.AccountReceivable) error,
) (*ObligationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receivable", method,
		telemetry.SpanAttrOrganizationID, organizationID.String(),
		"receivable_id", id.String(),
	)
	defer span.End()

	if err := requireIDs(organizationID, id); err != nil {
		return nil, err
	}
	ar, err := s.repo.FindByID(ctx, organizationID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := apply(ar); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	events := ar.PullDomainEvents()
	if err := s.repo.SaveWithLockAndEvents(ctx, ar, events); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Debug("receivable updated",
		zap.String("operation", method),
		zap.String("receivable_id", ar.ID.String()),
		zap.String("status", ar.Status().String()),
		zap.Int("events", len(events)),
	)
	return s.respond(ar)
}

func (s *ReceivableService) respond(ar *finance.AccountReceivable) (*ObligationResponse, error) {
	resp, err := toObligationResponse(finance.ObligationKindReceivable, &ar.Obligation, s.clock())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
