package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/matcher"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"github.com/kursadbilgin/housing-engine/internal/template"
	"go.uber.org/zap"
)

const defaultResponseWindow = 120 * time.Hour

const (
	outcomeApplied  = "applied"
	outcomeNoop     = "noop"
	outcomeRejected = "rejected"
)

// errUnchanged aborts a repository update for an idempotent no-op.
var errUnchanged = errors.New("application unchanged")

// LifecycleService applies lifecycle transitions to stored applications and
// sends the notifications that follow them. A transition is authoritative
// once persisted; notification failures are logged and never roll it back.
type LifecycleService struct {
	apps           repository.ApplicationRepository
	listings       repository.ListingRepository
	notifier       Notifier
	responseWindow time.Duration
	logger         *zap.Logger
	metrics        *observability.Metrics
	now            func() time.Time
}

func NewLifecycleService(
	apps repository.ApplicationRepository,
	listings repository.ListingRepository,
	notifier Notifier,
	responseWindow time.Duration,
	logger *zap.Logger,
) (*LifecycleService, error) {
	if apps == nil {
		return nil, errors.New("lifecycle service: application repository is required")
	}
	if listings == nil {
		return nil, errors.New("lifecycle service: listing repository is required")
	}
	if notifier == nil {
		return nil, errors.New("lifecycle service: notifier is required")
	}
	if responseWindow <= 0 {
		responseWindow = defaultResponseWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LifecycleService{
		apps:           apps,
		listings:       listings,
		notifier:       notifier,
		responseWindow: responseWindow,
		logger:         logger,
		now:            time.Now,
	}, nil
}

func (s *LifecycleService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Create stores a new DRAFT application.
func (s *LifecycleService) Create(ctx context.Context, app *domain.ApplicationRecord) (*domain.ApplicationRecord, error) {
	if app == nil {
		return nil, fmt.Errorf("%w: application is required", domain.ErrValidation)
	}
	if app.ID != 0 {
		return nil, fmt.Errorf("%w: application id is assigned on create", domain.ErrValidation)
	}

	draft := *app
	draft.StatusCd = domain.StatusDraft
	if draft.SubmissionType == "" {
		draft.SubmissionType = domain.SubmissionOnline
	}
	draft.DuplicateCheckCd = nil
	draft.DuplicateReason = nil
	draft.DuplicateCheckResponseDueDate = nil
	draft.DisqualifiedInd = false
	draft.DisqualificationCd = nil
	draft.DisqualificationReason = nil
	draft.SubmittedDate = nil
	draft.WithdrawnDate = nil
	if draft.SubmissionType == domain.SubmissionOnline {
		draft.ReceivedDate = nil
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.listings.GetByID(ctx, draft.ListingID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: listing %d does not exist", domain.ErrValidation, draft.ListingID)
		}
		return nil, err
	}

	if err := s.apps.Create(ctx, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *LifecycleService) Get(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	return s.apps.GetByID(ctx, id)
}

// Submit moves a draft to SUBMITTED and evaluates it against the other
// active applications for the same listing. Any match flags the application
// as a potential duplicate in the same write.
func (s *LifecycleService) Submit(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	current, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.apps.ListActiveByListing(ctx, current.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applications for duplicate check: %w", err)
	}

	now := s.now().UTC()
	var result matcher.Result
	app, err := s.transition(ctx, id, domain.TransitionSubmit, func(a *domain.ApplicationRecord) error {
		if err := a.Submit(now); err != nil {
			return err
		}
		result = matcher.Match(*a, existing)
		if result.HasMatch() {
			return a.MarkPotentialDuplicate(result.Reason(), now.Add(s.responseWindow))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	listing := s.listing(ctx, app.ListingID)
	s.notify(ctx, app, composer.KindApplicationSubmitted, listing)

	if result.HasMatch() {
		for _, b := range result.Matched() {
			s.metrics.IncDuplicateMatch(b.Dimension.String())
		}
		s.metrics.IncTransition(domain.TransitionMarkPotentialDuplicate.String(), outcomeApplied)
		s.logger.Info("submitted application flagged as potential duplicate",
			zap.Int64("applicationId", app.ID),
			zap.Int64("listingId", app.ListingID),
			zap.Bool("strongMatch", result.StrongMatch()),
			zap.String("reason", result.Reason()),
		)
		s.notifyPotentialDuplicate(ctx, app, listing)
	}

	return app, nil
}

func (s *LifecycleService) Waitlist(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	return s.transition(ctx, id, domain.TransitionWaitlist, func(a *domain.ApplicationRecord) error {
		return a.Waitlist()
	})
}

// MarkPotentialDuplicate flags the application and opens a response window
// of the configured length, then notifies the applicant and staff.
func (s *LifecycleService) MarkPotentialDuplicate(ctx context.Context, id int64, reason string) (*domain.ApplicationRecord, error) {
	due := s.now().UTC().Add(s.responseWindow)
	app, err := s.transition(ctx, id, domain.TransitionMarkPotentialDuplicate, func(a *domain.ApplicationRecord) error {
		return a.MarkPotentialDuplicate(reason, due)
	})
	if err != nil {
		return nil, err
	}

	s.notifyPotentialDuplicate(ctx, app, s.listing(ctx, app.ListingID))
	return app, nil
}

func (s *LifecycleService) ConfirmDuplicate(ctx context.Context, id int64, reason string) (*domain.ApplicationRecord, error) {
	app, err := s.transition(ctx, id, domain.TransitionConfirmDuplicate, func(a *domain.ApplicationRecord) error {
		return a.ConfirmDuplicate(reason)
	})
	if err != nil {
		return nil, err
	}

	listing := s.listing(ctx, app.ListingID)
	s.notify(ctx, app, composer.DuplicateConfirmedKind(app.SubmissionType), listing)
	s.notify(ctx, app, composer.KindDuplicateConfirmedStaff, listing)
	return app, nil
}

// ClearDuplicateFlag removes a potential-duplicate flag. Clearing an
// application without a flag returns it unchanged.
func (s *LifecycleService) ClearDuplicateFlag(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	return s.transition(ctx, id, domain.TransitionClearDuplicateFlag, func(a *domain.ApplicationRecord) error {
		cleared, err := a.ClearDuplicateFlag()
		if err != nil {
			return err
		}
		if !cleared {
			return errUnchanged
		}
		return nil
	})
}

// Withdraw is idempotent: withdrawing a withdrawn application returns it
// unchanged and sends nothing.
func (s *LifecycleService) Withdraw(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	now := s.now().UTC()
	changed := false
	app, err := s.transition(ctx, id, domain.TransitionWithdraw, func(a *domain.ApplicationRecord) error {
		ok, err := a.Withdraw(now)
		if err != nil {
			return err
		}
		if !ok {
			return errUnchanged
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify(ctx, app, composer.KindApplicationWithdrawn, s.listing(ctx, app.ListingID))
	}
	return app, nil
}

func (s *LifecycleService) Disqualify(ctx context.Context, id int64, code string, reason string) (*domain.ApplicationRecord, error) {
	return s.transition(ctx, id, domain.TransitionDisqualify, func(a *domain.ApplicationRecord) error {
		return a.Disqualify(code, reason)
	})
}

// DuplicateMatches runs the matcher for an application without changing it.
func (s *LifecycleService) DuplicateMatches(ctx context.Context, id int64) (matcher.Result, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return matcher.Result{}, err
	}
	existing, err := s.apps.ListActiveByListing(ctx, app.ListingID)
	if err != nil {
		return matcher.Result{}, fmt.Errorf("failed to load applications for duplicate check: %w", err)
	}
	return matcher.Match(*app, existing), nil
}

// transition applies mutate under the repository's row lock. A mutation
// returning errUnchanged is a successful no-op and the stored record is
// returned as-is.
func (s *LifecycleService) transition(
	ctx context.Context,
	id int64,
	t domain.Transition,
	mutate func(a *domain.ApplicationRecord) error,
) (*domain.ApplicationRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.Int64("applicationId", id),
		zap.String("transition", t.String()),
	)

	app, err := s.apps.Update(ctx, id, func(a *domain.ApplicationRecord) error {
		if err := mutate(a); err != nil {
			return err
		}
		return a.CheckInvariants()
	})
	switch {
	case errors.Is(err, errUnchanged):
		s.metrics.IncTransition(t.String(), outcomeNoop)
		logger.Info("transition is a no-op")
		return s.apps.GetByID(ctx, id)
	case err != nil:
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrValidation) {
			s.metrics.IncTransition(t.String(), outcomeRejected)
			logger.Warn("transition rejected", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.IncTransition(t.String(), outcomeApplied)
	logger.Info("transition applied", zap.String("status", app.CurrentStatus().String()))
	return app, nil
}

func (s *LifecycleService) notifyPotentialDuplicate(ctx context.Context, app *domain.ApplicationRecord, listing *domain.Listing) {
	s.notify(ctx, app, composer.PotentialDuplicateKind(app.SubmissionType), listing)
	s.notify(ctx, app, composer.KindPotentialDuplicateStaff, listing)
}

// notify is best-effort: failures are logged by the notifier and here, and
// never surface to the caller of the transition.
func (s *LifecycleService) notify(ctx context.Context, app *domain.ApplicationRecord, kind composer.Kind, listing *domain.Listing) {
	req := composer.Request{
		Kind:     kind,
		Username: app.Username,
		To:       domain.Text(app.Email),
		Values:   applicationValues(app, listing),
	}
	if _, err := s.notifier.Notify(ctx, req); err != nil {
		observability.WithContextLogger(s.logger, ctx).Warn("lifecycle notification failed",
			zap.Int64("applicationId", app.ID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
}

func (s *LifecycleService) listing(ctx context.Context, id int64) *domain.Listing {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		observability.WithContextLogger(s.logger, ctx).Warn("listing lookup failed, notifying without listing address",
			zap.Int64("listingId", id),
			zap.Error(err),
		)
		return nil
	}
	return listing
}

// applicationValues fills every token an application notice can use. NAME
// is the applicant's display name; ADDRESS is the listing's address.
func applicationValues(app *domain.ApplicationRecord, listing *domain.Listing) template.Values {
	values := template.Values{
		template.ApplicationID:  strconv.FormatInt(app.ID, 10),
		template.ListID:         strconv.FormatInt(app.ListingID, 10),
		template.Name:           app.ApplicantName(),
		template.Username:       app.Username,
		template.ApplicantName:  app.ApplicantName(),
		template.ApplicantEmail: domain.Text(app.Email),
		template.ApplicantPhone: domain.Text(app.Phone),
		template.Reason:         domain.Text(app.DuplicateReason),
		template.Address:        "",
		template.SubmittedDate:  "",
		template.DueDate:        "",
	}
	if listing != nil {
		values[template.Address] = listing.Address.SingleLine()
	}
	if app.SubmittedDate != nil {
		values[template.SubmittedDate] = composer.FormatDate(*app.SubmittedDate)
	}
	if app.DuplicateCheckResponseDueDate != nil {
		values[template.DueDate] = composer.FormatDate(*app.DuplicateCheckResponseDueDate)
	}
	return values
}
