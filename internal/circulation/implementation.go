// internal/circulation/implementation.go
package circulation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"libracatalog/internal/catalog"
	domainerrors "libracatalog/internal/errors"
	"libracatalog/internal/journal"
	"libracatalog/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	// mu serialises read-modify-write cycles against the repository.
	mu        sync.Mutex
	repo      catalog.Repository
	journal   *journal.Journal
	validator *validation.Validator
	log       *zap.Logger
	opts      Options
	tracer    trace.Tracer

	checkouts    metric.Int64Counter
	returns      metric.Int64Counter
	loanFailures metric.Int64Counter
}

// NewService creates a new circulation service instance. j may be nil, in
// which case no activity is recorded.
func NewService(repo catalog.Repository, j *journal.Journal, log *zap.Logger, opts Options) (Service, error) {
	if opts.ReturnPolicy == "" {
		opts.ReturnPolicy = ReturnPolicyStrict
	}
	if opts.OverdueDays <= 0 {
		opts.OverdueDays = DefaultOverdueDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	meter := otel.Meter("libracatalog/circulation")
	checkouts, err := meter.Int64Counter("checkouts", metric.WithDescription("Items checked out"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkouts counter: %w", err)
	}
	returns, err := meter.Int64Counter("returns", metric.WithDescription("Items returned"))
	if err != nil {
		return nil, fmt.Errorf("failed to create returns counter: %w", err)
	}
	loanFailures, err := meter.Int64Counter("loan_failures", metric.WithDescription("Rejected or failed loan operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create loan_failures counter: %w", err)
	}

	return &service{
		repo:         repo,
		journal:      j,
		validator:    validation.New(),
		log:          log,
		opts:         opts,
		tracer:       otel.Tracer("libracatalog/circulation"),
		checkouts:    checkouts,
		returns:      returns,
		loanFailures: loanFailures,
	}, nil
}

// Checkout lends an Available item to a borrower.
func (s *service) Checkout(ctx context.Context, req CheckoutRequest) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.checkout",
		trace.WithAttributes(attribute.Int("item.id", req.ItemID)),
	)
	defer span.End()

	req.BorrowerName = strings.TrimSpace(req.BorrowerName)
	req.BorrowerEmail = strings.TrimSpace(req.BorrowerEmail)

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, idx, err := s.locate(ctx, req.ItemID)
	if err != nil {
		s.fail(ctx, "checkout", err)
		return nil, err
	}
	current := coll.Items[idx]
	if current.IsLoaned() {
		err := domainerrors.InvalidTransition(req.ItemID, current.Availability.String())
		s.fail(ctx, "checkout", err)
		return nil, err
	}
	if err := s.validateCheckout(req); err != nil {
		s.fail(ctx, "checkout", err)
		return nil, err
	}

	loanDate := s.opts.Now().In(s.opts.Location).Truncate(time.Minute)
	next := coll.Clone()
	next.Items[idx].Lend(req.BorrowerName, req.BorrowerEmail, loanDate)

	if err := s.repo.Save(ctx, next); err != nil {
		s.fail(ctx, "checkout", err)
		return nil, fmt.Errorf("failed to save checkout: %w", err)
	}

	loan := &Loan{
		ID:            uuid.New(),
		ItemID:        req.ItemID,
		Title:         current.Title,
		BorrowerName:  req.BorrowerName,
		BorrowerEmail: req.BorrowerEmail,
		LoanDate:      loanDate,
	}

	s.record(ctx, req.ItemID, EventItemCheckedOut, ItemCheckedOutEvent{
		LoanID:        loan.ID,
		ItemID:        loan.ItemID,
		BorrowerName:  loan.BorrowerName,
		BorrowerEmail: loan.BorrowerEmail,
		LoanDate:      loan.LoanDate,
	})
	s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("item.type", current.Type.Slug())))
	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))

	s.log.Info("Item checked out",
		zap.Int("item_id", loan.ItemID),
		zap.String("loan_id", loan.ID.String()),
		zap.String("borrower", loan.BorrowerName),
	)
	return loan, nil
}

// ReturnItem moves a Loaned item back to Available.
func (s *service) ReturnItem(ctx context.Context, itemID int) (*Return, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.Int("item.id", itemID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, idx, err := s.locate(ctx, itemID)
	if err != nil {
		s.fail(ctx, "return", err)
		return nil, err
	}
	current := coll.Items[idx]
	returnedAt := s.opts.Now().In(s.opts.Location)

	if !current.IsLoaned() {
		if s.opts.ReturnPolicy == ReturnPolicyLenient {
			s.log.Info("Return of available item ignored", zap.Int("item_id", itemID))
			return &Return{ItemID: itemID, Title: current.Title, ReturnedAt: returnedAt}, nil
		}
		err := domainerrors.InvalidTransition(itemID, current.Availability.String())
		s.fail(ctx, "return", err)
		return nil, err
	}

	next := coll.Clone()
	next.Items[idx].Release()

	if err := s.repo.Save(ctx, next); err != nil {
		s.fail(ctx, "return", err)
		return nil, fmt.Errorf("failed to save return: %w", err)
	}

	s.record(ctx, itemID, EventItemReturned, ItemReturnedEvent{
		ItemID:       itemID,
		BorrowerName: current.BorrowerName,
		LoanDate:     current.LoanDate,
		ReturnedAt:   returnedAt,
	})
	s.returns.Add(ctx, 1, metric.WithAttributes(attribute.String("item.type", current.Type.Slug())))

	s.log.Info("Item returned",
		zap.Int("item_id", itemID),
		zap.String("borrower", current.BorrowerName),
	)
	return &Return{ItemID: itemID, Title: current.Title, ReturnedAt: returnedAt, Changed: true}, nil
}

// OverdueReport lists Loaned items older than thresholdDays.
func (s *service) OverdueReport(ctx context.Context, thresholdDays int) ([]OverdueLoan, error) {
	if thresholdDays <= 0 {
		thresholdDays = s.opts.OverdueDays
	}
	ctx, span := s.tracer.Start(ctx, "circulation.overdue_report",
		trace.WithAttributes(attribute.Int("threshold.days", thresholdDays)),
	)
	defer span.End()

	coll, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	overdue := DetectOverdue(coll.Items, thresholdDays, s.opts.Now())
	span.SetAttributes(attribute.Int("overdue.count", len(overdue)))
	return overdue, nil
}

func (s *service) Activity(ctx context.Context, afterSeq int64, limit int) ([]journal.Event, error) {
	if s.journal == nil {
		return []journal.Event{}, nil
	}
	return s.journal.StreamEvents(ctx, afterSeq, limit), nil
}

func (s *service) ItemHistory(ctx context.Context, itemID int) ([]journal.Event, error) {
	if _, _, err := s.locate(ctx, itemID); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return []journal.Event{}, nil
	}
	events, err := s.journal.LoadEvents(ctx, itemID, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load item history: %w", err)
	}
	return events, nil
}

func (s *service) locate(ctx context.Context, itemID int) (*catalog.Collection, int, error) {
	coll, err := s.repo.Load(ctx)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to load catalog: %w", err)
	}
	idx := coll.Find(itemID)
	if idx < 0 {
		return nil, -1, domainerrors.NotFound(itemID)
	}
	return coll, idx, nil
}

func (s *service) validateCheckout(req CheckoutRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if s.opts.RequireEmail {
		return s.validator.Field("borrower_email", req.BorrowerEmail, "required,contains=@")
	}
	return nil
}

// record appends a committed transition to the journal. The catalog file is
// already saved at this point, so failures are only logged.
func (s *service) record(ctx context.Context, itemID int, eventType string, data any) {
	if s.journal == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Error("Failed to marshal loan event", zap.Int("item_id", itemID), zap.Error(err))
		return
	}
	version := s.journal.CurrentVersion(ctx, itemID)
	event := journal.Event{EventType: eventType, EventData: payload}
	if err := s.journal.AppendEvents(ctx, itemID, version, []journal.Event{event}); err != nil {
		s.log.Error("Failed to journal loan event",
			zap.Int("item_id", itemID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func (s *service) fail(ctx context.Context, op string, err error) {
	code := domainerrors.CodeInternal
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		code = domainErr.Code
	}
	s.loanFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("code", string(code)),
	))
	trace.SpanFromContext(ctx).RecordError(err)
	s.log.Warn("Loan operation rejected", zap.String("operation", op), zap.Error(err))
}
