// Package provisioning creates users as an identity plus a profile and
// removes the identity again when the profile cannot be stored.
package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/glansab/backoffice/internal/identity"
	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/orphan"
	"github.com/glansab/backoffice/internal/saga"
)

const (
	// DefaultPlaceholderPassword is set on new identities; users reset it out-of-band.
	DefaultPlaceholderPassword = "temporary-password-for-user"

	// DefaultRollbackMaxElapsed bounds the inline compensating delete retries.
	DefaultRollbackMaxElapsed = 5 * time.Second

	enqueueTimeout = 2 * time.Second

	stepCreateIdentity = "create_identity"
	stepInsertProfile  = "insert_profile"
)

// IdentityProvider creates and deletes identities.
type IdentityProvider interface {
	CreateUser(ctx context.Context, params identity.CreateUserParams) (*model.Identity, error)
	DeleteUser(ctx context.Context, id string) error
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *model.UserProfile) error
}

// OrphanQueue hands identities that could not be deleted to the sweeper.
type OrphanQueue interface {
	Enqueue(ctx context.Context, rec orphan.Record) (string, error)
}

// Options configures the Service.
type Options struct {
	PlaceholderPassword string
	RollbackMaxElapsed  time.Duration
}

// Service provisions users.
type Service struct {
	identities          IdentityProvider
	profiles            ProfileStore
	orphans             OrphanQueue
	logger              *slog.Logger
	metrics             metrics.Recorder
	placeholderPassword string
	rollbackMaxElapsed  time.Duration
}

// NewService creates a provisioning service. orphans may be nil, in which
// case failed rollbacks are only logged.
func NewService(identities IdentityProvider, profiles ProfileStore, orphans OrphanQueue, logger *slog.Logger, recorder metrics.Recorder, opts Options) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if opts.PlaceholderPassword == "" {
		opts.PlaceholderPassword = DefaultPlaceholderPassword
	}
	if opts.RollbackMaxElapsed <= 0 {
		opts.RollbackMaxElapsed = DefaultRollbackMaxElapsed
	}
	return &Service{
		identities:          identities,
		profiles:            profiles,
		orphans:             orphans,
		logger:              logger.With("component", "provisioning"),
		metrics:             recorder,
		placeholderPassword: opts.PlaceholderPassword,
		rollbackMaxElapsed:  opts.RollbackMaxElapsed,
	}
}

// Provision creates the identity, then the profile. When the profile insert
// fails the identity is deleted again. Errors are *ValidationError,
// *AuthError or *ProfileError.
func (s *Service) Provision(ctx context.Context, req Request) (*model.UserProfile, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveProvisioningDuration(time.Since(start))
	}()

	if err := req.Validate(); err != nil {
		s.metrics.IncUserProvisioned(metrics.OutcomeInvalid)
		return nil, err
	}

	var (
		ident   *model.Identity
		profile *model.UserProfile
	)

	err := saga.New(
		saga.Step{
			Name: stepCreateIdentity,
			Action: func(ctx context.Context) error {
				var err error
				ident, err = s.identities.CreateUser(ctx, identity.CreateUserParams{
					Email:        req.Email,
					Password:     s.placeholderPassword,
					EmailConfirm: true,
					FullName:     req.FullName,
				})
				return err
			},
			Compensate: func(ctx context.Context) error {
				return s.deleteIdentity(ctx, ident.ID)
			},
		},
		saga.Step{
			Name: stepInsertProfile,
			Action: func(ctx context.Context) error {
				profile = req.Profile(ident.ID)
				return s.profiles.CreateProfile(ctx, profile)
			},
		},
	).Run(ctx)

	if err == nil {
		s.metrics.IncUserProvisioned(metrics.OutcomeSuccess)
		s.logger.Info("user provisioned",
			"user_id", ident.ID,
			"organisation_id", profile.OrganisationID,
			"role", profile.Role,
		)
		return profile, nil
	}

	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return nil, err
	}

	if stepErr.Step == stepCreateIdentity {
		s.metrics.IncUserProvisioned(metrics.OutcomeAuthError)
		s.logger.Warn("identity creation failed", "email", req.Email, "error", stepErr.Err)
		return nil, &AuthError{Err: stepErr.Err}
	}

	profileErr := &ProfileError{Err: stepErr.Err}
	if stepErr.Compensated() {
		s.metrics.IncUserProvisioned(metrics.OutcomeProfileError)
		s.logger.Warn("profile insert failed, identity removed",
			"user_id", ident.ID,
			"error", stepErr.Err,
		)
		return nil, profileErr
	}

	profileErr.Rollback = s.escalate(ctx, ident, req, stepErr.Compensation)
	s.metrics.IncUserProvisioned(metrics.OutcomeRollbackError)
	return nil, profileErr
}

// deleteIdentity retries the compensating delete with exponential backoff.
// It runs detached from the request context so a client disconnect does
// not abandon the rollback.
func (s *Service) deleteIdentity(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollbackMaxElapsed+identity.ClientTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = s.rollbackMaxElapsed

	attempts := 0
	op := func() error {
		attempts++
		err := s.identities.DeleteUser(ctx, id)
		if err == nil || errors.Is(err, identity.ErrNotFound) {
			return nil
		}
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		s.metrics.IncRollback("failed")
		s.logger.Warn("compensating identity delete failed",
			"user_id", id,
			"attempts", attempts,
			"error", err,
		)
		return err
	}
	s.metrics.IncRollback("success")
	return nil
}

// escalate records an identity that is left without a profile.
func (s *Service) escalate(ctx context.Context, ident *model.Identity, req Request, cause error) *RollbackError {
	rbErr := &RollbackError{IdentityID: ident.ID, Err: cause}

	s.logger.Error("orphan identity left after failed rollback",
		"user_id", ident.ID,
		"email", ident.Email,
		"organisation_id", req.OrganisationID,
		"error", cause,
	)

	if s.orphans == nil {
		return rbErr
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	_, err := s.orphans.Enqueue(ctx, orphan.Record{
		IdentityID:     ident.ID,
		Email:          ident.Email,
		OrganisationID: req.OrganisationID,
		Reason:         cause.Error(),
	})
	if err != nil {
		s.logger.Error("failed to enqueue orphan identity",
			"user_id", ident.ID,
			"error", err,
		)
		return rbErr
	}
	rbErr.Enqueued = true
	return rbErr
}
