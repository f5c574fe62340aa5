package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glansab/backoffice/internal/identity"
	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/orphan"
)

type fakeIdentities struct {
	mu         sync.Mutex
	byEmail    map[string]*model.Identity
	created    []identity.CreateUserParams
	deleted    []string
	createErr  error
	deleteErrs []error // consumed in order, nil once exhausted
	nextID     int
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byEmail: make(map[string]*model.Identity)}
}

func (f *fakeIdentities) CreateUser(ctx context.Context, params identity.CreateUserParams) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.byEmail[params.Email]; exists {
		return nil, &identity.APIError{StatusCode: 422, Message: "A user with this email address has already been registered"}
	}
	f.nextID++
	ident := &model.Identity{
		ID:             "id-" + string(rune('0'+f.nextID)),
		Email:          params.Email,
		EmailConfirmed: params.EmailConfirm,
		FullName:       params.FullName,
	}
	f.byEmail[params.Email] = ident
	f.created = append(f.created, params)
	return ident, nil
}

func (f *fakeIdentities) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	f.deleted = append(f.deleted, id)
	for email, ident := range f.byEmail {
		if ident.ID == id {
			delete(f.byEmail, email)
		}
	}
	return nil
}

func (f *fakeIdentities) exists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ident := range f.byEmail {
		if ident.ID == id {
			return true
		}
	}
	return false
}

type fakeProfiles struct {
	rows map[string]*model.UserProfile
	err  error
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = make(map[string]*model.UserProfile)
	}
	f.rows[p.ID] = p
	return nil
}

type fakeOrphans struct {
	records []orphan.Record
	err     error
}

func (f *fakeOrphans) Enqueue(ctx context.Context, rec orphan.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return "1-0", nil
}

func strPtr(s string) *string { return &s }

func f64Ptr(v float64) *float64 { return &v }

func boolPtr(b bool) *bool { return &b }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	identities *fakeIdentities
	profiles   *fakeProfiles
	orphans    *fakeOrphans
	metrics    *metrics.InMemoryRecorder
	svc        *Service
}

func newFixture() *fixture {
	f := &fixture{
		identities: newFakeIdentities(),
		profiles:   &fakeProfiles{},
		orphans:    &fakeOrphans{},
		metrics:    metrics.NewInMemory(),
	}
	f.svc = NewService(f.identities, f.profiles, f.orphans, discardLogger(), f.metrics, Options{
		RollbackMaxElapsed: 50 * time.Millisecond,
	})
	return f
}

func hourlyRequest() Request {
	return Request{
		Email:          "a@b.com",
		FullName:       "A B",
		Role:           model.RoleWorker,
		OrganisationID: "org-1",
		EmploymentType: model.EmploymentHourly,
		BaseHourlyRate: f64Ptr(150),
	}
}

func TestProvision_EndToEnd(t *testing.T) {
	f := newFixture()

	profile, err := f.svc.Provision(context.Background(), hourlyRequest())

	require.NoError(t, err)
	require.Len(t, f.identities.created, 1)
	created := f.identities.created[0]
	assert.Equal(t, DefaultPlaceholderPassword, created.Password)
	assert.True(t, created.EmailConfirm)
	assert.Equal(t, "A B", created.FullName)

	stored := f.profiles.rows[profile.ID]
	require.NotNil(t, stored)
	assert.True(t, f.identities.exists(profile.ID), "identity and profile share the id")
	require.NotNil(t, stored.BaseHourlyRate)
	assert.Equal(t, 150.0, *stored.BaseHourlyRate)
	assert.Nil(t, stored.BaseMonthlySalary)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.HasCommission)
	assert.Nil(t, stored.CommissionRate)

	assert.Equal(t, uint64(1), f.metrics.Snapshot().Provisioned[metrics.OutcomeSuccess])
}

func TestProvision_TrimmedEmailReachesIdentityAndProfile(t *testing.T) {
	f := newFixture()
	req := hourlyRequest()
	req.Email = "  a@b.com \t"
	req.FullName = " A B "

	profile, err := f.svc.Provision(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, f.identities.created, 1)
	assert.Equal(t, "a@b.com", f.identities.created[0].Email)
	assert.Equal(t, "A B", f.identities.created[0].FullName)
	assert.Equal(t, "a@b.com", f.profiles.rows[profile.ID].Email)
	assert.Equal(t, "A B", f.profiles.rows[profile.ID].FullName)
}

func TestProvision_DuplicateEmailIsAuthError(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Provision(context.Background(), hourlyRequest())
	require.NoError(t, err)
	rowsBefore := len(f.profiles.rows)

	_, err = f.svc.Provision(context.Background(), hourlyRequest())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, strings.HasPrefix(err.Error(), "Auth error: "))
	assert.Contains(t, err.Error(), "already been registered")
	assert.Len(t, f.profiles.rows, rowsBefore, "no profile row inserted")
	assert.Empty(t, f.identities.deleted, "nothing to compensate")
}

func TestProvision_SalaryDropsHourlyRate(t *testing.T) {
	f := newFixture()
	req := hourlyRequest()
	req.EmploymentType = model.EmploymentSalary
	req.BaseMonthlySalary = f64Ptr(32000)

	profile, err := f.svc.Provision(context.Background(), req)

	require.NoError(t, err)
	assert.Nil(t, profile.BaseHourlyRate)
	require.NotNil(t, profile.BaseMonthlySalary)
	assert.Equal(t, 32000.0, *profile.BaseMonthlySalary)
}

func TestProvision_CommissionRules(t *testing.T) {
	tests := []struct {
		name          string
		hasCommission *bool
		rate          *float64
		wantRate      *float64
	}{
		{"absent flag drops rate", nil, f64Ptr(5), nil},
		{"false flag drops rate", boolPtr(false), f64Ptr(5), nil},
		{"zero rate is null", boolPtr(true), f64Ptr(0), nil},
		{"missing rate is null", boolPtr(true), nil, nil},
		{"kept when enabled", boolPtr(true), f64Ptr(7.5), f64Ptr(7.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := hourlyRequest()
			req.HasCommission = tt.hasCommission
			req.CommissionRate = tt.rate

			profile, err := f.svc.Provision(context.Background(), req)

			require.NoError(t, err)
			assert.Equal(t, tt.wantRate, profile.CommissionRate)
			assert.Equal(t, tt.hasCommission != nil && *tt.hasCommission, profile.HasCommission)
		})
	}
}

func TestProvision_BlankOptionalStringsAreNull(t *testing.T) {
	f := newFixture()
	req := hourlyRequest()
	req.PhoneNumber = strPtr("")
	req.Address = strPtr("   ")
	req.City = strPtr(" Göteborg ")

	profile, err := f.svc.Provision(context.Background(), req)

	require.NoError(t, err)
	assert.Nil(t, profile.PhoneNumber)
	assert.Nil(t, profile.Address)
	assert.Nil(t, profile.PostalCode)
	require.NotNil(t, profile.City)
	assert.Equal(t, "Göteborg", *profile.City)
}

func TestProvision_ProfileFailureRollsBackIdentity(t *testing.T) {
	f := newFixture()
	f.profiles.err = &pgconn.PgError{
		Code:    "23503",
		Message: `insert or update on table "user_profiles" violates foreign key constraint`,
	}

	_, err := f.svc.Provision(context.Background(), hourlyRequest())

	var profileErr *ProfileError
	require.ErrorAs(t, err, &profileErr)
	assert.Nil(t, profileErr.Rollback)
	assert.Equal(t, `Profile error: insert or update on table "user_profiles" violates foreign key constraint`, err.Error())
	assert.Equal(t, []string{"id-1"}, f.identities.deleted)
	assert.False(t, f.identities.exists("id-1"))

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Provisioned[metrics.OutcomeProfileError])
	assert.Equal(t, uint64(1), snap.RollbacksSucceeded)
	assert.Empty(t, f.orphans.records)
}

func TestProvision_RollbackRetriesTransientFailure(t *testing.T) {
	f := newFixture()
	f.svc.rollbackMaxElapsed = 3 * time.Second
	f.profiles.err = errors.New("connection reset")
	f.identities.deleteErrs = []error{&identity.APIError{StatusCode: 503, Message: "unavailable"}}

	_, err := f.svc.Provision(context.Background(), hourlyRequest())

	var profileErr *ProfileError
	require.ErrorAs(t, err, &profileErr)
	assert.Nil(t, profileErr.Rollback)
	assert.Equal(t, []string{"id-1"}, f.identities.deleted)
}

func TestProvision_RollbackFailureEnqueuesOrphan(t *testing.T) {
	f := newFixture()
	f.profiles.err = errors.New("connection reset")
	f.identities.deleteErrs = []error{&identity.APIError{StatusCode: 403, Message: "forbidden"}}

	_, err := f.svc.Provision(context.Background(), hourlyRequest())

	var profileErr *ProfileError
	require.ErrorAs(t, err, &profileErr)
	assert.True(t, strings.HasPrefix(err.Error(), "Profile error: "))

	var rbErr *RollbackError
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, "id-1", rbErr.IdentityID)
	assert.True(t, rbErr.Enqueued)

	require.Len(t, f.orphans.records, 1)
	assert.Equal(t, "id-1", f.orphans.records[0].IdentityID)
	assert.Equal(t, "org-1", f.orphans.records[0].OrganisationID)

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.RollbacksFailed)
	assert.Equal(t, uint64(1), snap.Provisioned[metrics.OutcomeRollbackError])
}

func TestProvision_RollbackFailureWithoutQueue(t *testing.T) {
	f := newFixture()
	f.profiles.err = errors.New("boom")
	f.identities.deleteErrs = []error{&identity.APIError{StatusCode: 400, Message: "bad"}}
	f.orphans.err = errors.New("redis down")

	_, err := f.svc.Provision(context.Background(), hourlyRequest())

	var rbErr *RollbackError
	require.ErrorAs(t, err, &rbErr)
	assert.False(t, rbErr.Enqueued)
}

func TestProvision_DeleteNotFoundCountsAsRolledBack(t *testing.T) {
	f := newFixture()
	f.profiles.err = errors.New("boom")
	f.identities.deleteErrs = []error{&identity.APIError{StatusCode: 404, Message: "User not found"}}

	_, err := f.svc.Provision(context.Background(), hourlyRequest())

	var profileErr *ProfileError
	require.ErrorAs(t, err, &profileErr)
	assert.Nil(t, profileErr.Rollback)
}

func TestProvision_RollbackSurvivesCancelledRequest(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.profiles.err = errors.New("boom")
	store := &cancellingProfiles{cancel: cancel}

	svc := NewService(f.identities, store, f.orphans, discardLogger(), nil, Options{RollbackMaxElapsed: 50 * time.Millisecond})
	_, err := svc.Provision(ctx, hourlyRequest())

	require.Error(t, err)
	assert.Equal(t, []string{"id-1"}, f.identities.deleted)
}

type cancellingProfiles struct {
	cancel context.CancelFunc
}

func (c *cancellingProfiles) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	c.cancel()
	return context.Canceled
}

func TestProvision_ValidationCreatesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"missing email", func(r *Request) { r.Email = "" }, "email"},
		{"bad email", func(r *Request) { r.Email = "not-an-email" }, "email"},
		{"display name email", func(r *Request) { r.Email = " A B <a@b.com> " }, "email"},
		{"bracketed email", func(r *Request) { r.Email = "<a@b.com>" }, "email"},
		{"missing name", func(r *Request) { r.FullName = " " }, "full_name"},
		{"missing role", func(r *Request) { r.Role = "" }, "role"},
		{"unknown role", func(r *Request) { r.Role = "owner" }, "role"},
		{"missing organisation", func(r *Request) { r.OrganisationID = "" }, "organisation_id"},
		{"missing employment type", func(r *Request) { r.EmploymentType = "" }, "employment_type"},
		{"unknown employment type", func(r *Request) { r.EmploymentType = "commission" }, "employment_type"},
		{"negative rate", func(r *Request) { r.BaseHourlyRate = f64Ptr(-1) }, "base_hourly_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := hourlyRequest()
			tt.mutate(&req)

			_, err := f.svc.Provision(context.Background(), req)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, f.identities.created)
			assert.Equal(t, uint64(1), f.metrics.Snapshot().Provisioned[metrics.OutcomeInvalid])
		})
	}
}
