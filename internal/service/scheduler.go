package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultDeadlineScanInterval = time.Hour
	defaultDeadlineScanLimit    = 100

	expiredWindowReason = "Duplicate response window expired without applicant response"
)

// ExpiryPolicy is what happens to a potential duplicate whose response
// window passed.
type ExpiryPolicy string

const (
	ExpiryNone     ExpiryPolicy = "none"
	ExpiryWithdraw ExpiryPolicy = "withdraw"
	ExpiryConfirm  ExpiryPolicy = "confirm"
	ExpiryClear    ExpiryPolicy = "clear"
)

func (p ExpiryPolicy) String() string { return string(p) }

func ParseExpiryPolicy(s string) (ExpiryPolicy, error) {
	p := ExpiryPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return ExpiryNone, nil
	case ExpiryNone, ExpiryWithdraw, ExpiryConfirm, ExpiryClear:
		return p, nil
	default:
		return "", fmt.Errorf("%w: invalid duplicate expiry policy %q", domain.ErrValidation, s)
	}
}

// DuplicateResolver is the part of the lifecycle the scanner drives.
type DuplicateResolver interface {
	Withdraw(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	ConfirmDuplicate(ctx context.Context, id int64, reason string) (*domain.ApplicationRecord, error)
	ClearDuplicateFlag(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
}

// DuplicateDeadlineScanner periodically finds potential duplicates whose
// response window passed and applies the configured policy to each.
type DuplicateDeadlineScanner struct {
	apps     repository.ApplicationRepository
	resolver DuplicateResolver
	policy   ExpiryPolicy
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	limit    int
	now      func() time.Time
}

func NewDuplicateDeadlineScanner(
	apps repository.ApplicationRepository,
	resolver DuplicateResolver,
	policy ExpiryPolicy,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*DuplicateDeadlineScanner, error) {
	if apps == nil {
		return nil, errors.New("deadline scanner: application repository is required")
	}
	if resolver == nil && policy != ExpiryNone {
		return nil, errors.New("deadline scanner: resolver is required for policy " + policy.String())
	}
	if interval <= 0 {
		interval = defaultDeadlineScanInterval
	}
	if limit <= 0 {
		limit = defaultDeadlineScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DuplicateDeadlineScanner{
		apps:     apps,
		resolver: resolver,
		policy:   policy,
		logger:   logger,
		interval: interval,
		limit:    limit,
		now:      time.Now,
	}, nil
}

func (s *DuplicateDeadlineScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *DuplicateDeadlineScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanOverdue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("deadline scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanOverdue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("deadline scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *DuplicateDeadlineScanner) scanOverdue(ctx context.Context) error {
	overdue, err := s.apps.ListOverdueDuplicateChecks(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch overdue duplicate checks: %w", err)
	}

	for i := range overdue {
		app := overdue[i]
		logger := s.logger.With(
			zap.Int64("applicationId", app.ID),
			zap.String("policy", s.policy.String()),
		)
		if app.DuplicateCheckResponseDueDate != nil {
			logger = logger.With(zap.Time("dueDate", *app.DuplicateCheckResponseDueDate))
		}

		err := s.resolve(ctx, app.ID)
		switch {
		case err == nil && s.policy == ExpiryNone:
			s.metrics.IncDuplicateDeadlineExpired(s.policy.String(), outcomeNoop)
			logger.Info("duplicate response window expired, left for staff review")
		case err == nil:
			s.metrics.IncDuplicateDeadlineExpired(s.policy.String(), outcomeApplied)
			logger.Info("duplicate response window expired, policy applied")
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.metrics.IncDuplicateDeadlineExpired(s.policy.String(), outcomeRejected)
			logger.Error("failed to apply duplicate expiry policy", zap.Error(err))
		}
	}

	return nil
}

func (s *DuplicateDeadlineScanner) resolve(ctx context.Context, id int64) error {
	var err error
	switch s.policy {
	case ExpiryWithdraw:
		_, err = s.resolver.Withdraw(ctx, id)
	case ExpiryConfirm:
		_, err = s.resolver.ConfirmDuplicate(ctx, id, expiredWindowReason)
	case ExpiryClear:
		_, err = s.resolver.ClearDuplicateFlag(ctx, id)
	}
	return err
}
