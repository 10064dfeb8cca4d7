package finance

import (
	"context"
	"time"

	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceOption configures PayableService and ReceivableService
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock func() time.Time
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) ServiceOption {
	return func(o *serviceOptions) { o.clock = clock }
}

func applyOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PayableService drives the account payable lifecycle. Every mutation is
// stored together with the events it raised, so a confirmed payment and its
// PaymentCompleted event commit or fail as one.
type PayableService struct {
	repo   finance.AccountPayableRepository
	logger *zap.Logger
	clock  func() time.Time
}

// NewPayableService creates a new PayableService
func NewPayableService(repo finance.AccountPayableRepository, logger *zap.Logger, opts ...ServiceOption) *PayableService {
	o := applyOptions(opts)
	return &PayableService{repo: repo, logger: logger, clock: o.clock}
}

// Create creates an open payable
func (s *PayableService) Create(ctx context.Context, req CreateObligationRequest) (*ObligationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payable", "create",
		telemetry.SpanAttrOrganizationID, req.OrganizationID.String(),
		"document_number", req.DocumentNumber,
	)
	defer span.End()

	params, err := req.params()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ap, err := finance.NewAccountPayable(params)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.repo.SaveWithEvents(ctx, ap, ap.PullDomainEvents()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("payable created",
		zap.String("payable_id", ap.ID.String()),
		zap.String("document_number", ap.DocumentNumber),
		zap.String("amount", ap.Terms.Amount().String()),
	)
	return s.respond(ap)
}

// Get returns a payable with its payments
func (s *PayableService) Get(ctx context.Context, organizationID, id uuid.UUID) (*ObligationResponse, error) {
	ap, err := s.repo.FindByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ap)
}

// RegisterPayment attaches a pending payment to the payable
func (s *PayableService) RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "register_payment", req.OrganizationID, req.ObligationID, func(ap *finance.AccountPayable) error {
		payment, err := req.payment(&ap.Obligation)
		if err != nil {
			return err
		}
		return ap.RegisterPayment(payment)
	})
}

// ConfirmPayment confirms a pending payment and emits PaymentCompleted
func (s *PayableService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "confirm_payment", req.OrganizationID, req.ObligationID, func(ap *finance.AccountPayable) error {
		return ap.ConfirmPayment(req.PaymentID, req.ExternalRef, s.clock())
	})
}

// CancelPayment cancels a pending payment
func (s *PayableService) CancelPayment(ctx context.Context, req CancelPaymentRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "cancel_payment", req.OrganizationID, req.ObligationID, func(ap *finance.AccountPayable) error {
		return ap.CancelPayment(req.PaymentID, req.Reason, s.clock())
	})
}

// Cancel cancels the payable and emits PayableCancelled
func (s *PayableService) Cancel(ctx context.Context, req CancelObligationRequest) (*ObligationResponse, error) {
	return s.mutate(ctx, "cancel", req.OrganizationID, req.ObligationID, func(ap *finance.AccountPayable) error {
		return ap.Cancel(req.Reason, req.CancelledBy, s.clock())
	})
}

func (s *PayableService) mutate(
	ctx context.Context,
	method string,
	organizationID, id uuid.UUID,
	apply func(*finance.AccountPayable) error,
) (*ObligationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payable", method,
		telemetry.SpanAttrOrganizationID, organizationID.String(),
		"payable_id", id.String(),
	)
	defer span.End()

	if err := requireIDs(organizationID, id); err != nil {
		return nil, err
	}
	ap, err := s.repo.FindByID(ctx, organizationID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := apply(ap); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	events := ap.PullDomainEvents()
	if err := s.repo.SaveWithLockAndEvents(ctx, ap, events); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Debug("payable updated",
		zap.String("operation", method),
		zap.String("payable_id", ap.ID.String()),
		zap.String("status", ap.Status().String()),
		zap.Int("events", len(events)),
	)
	return s.respond(ap)
}

func (s *PayableService) respond(ap *finance.AccountPayable) (*ObligationResponse, error) {
	resp, err := toObligationResponse(finance.ObligationKindPayable, &ap.Obligation, s.clock())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
