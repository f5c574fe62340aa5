package service

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCustomerStore struct {
	customers map[string]*model.Customer
	dupField  string
	lastExcl  string
	createErr error
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{customers: map[string]*model.Customer{}}
}

func (f *fakeCustomerStore) SearchCustomers(ctx context.Context, orgID, q string, page, limit int) (*repository.CustomerPage, error) {
	var out []*model.Customer
	for _, c := range f.customers {
		if c.OrganisationID == orgID && strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) {
			out = append(out, c)
		}
	}
	return &repository.CustomerPage{Customers: out, TotalCount: len(out)}, nil
}

func (f *fakeCustomerStore) GetCustomer(ctx context.Context, orgID, id string) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok || c.OrganisationID != orgID {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCustomerStore) FindDuplicateCustomer(ctx context.Context, orgID, email, name, excludeID string) (string, error) {
	f.lastExcl = excludeID
	return f.dupField, nil
}

func (f *fakeCustomerStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomerStore) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	if _, ok := f.customers[c.ID]; !ok {
		return repository.ErrNotFound
	}
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomerStore) DeleteCustomer(ctx context.Context, orgID, id string) error {
	if _, ok := f.customers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.customers, id)
	return nil
}

func (f *fakeCustomerStore) GetCustomerInteractions(ctx context.Context, orgID, customerID string) (*model.CustomerInteractions, error) {
	return &model.CustomerInteractions{}, nil
}

// fakeBoardStore serves orders, lookups, teams and profiles.
type fakeBoardStore struct {
	orders   []*model.Order
	teams    []*model.Team
	profiles []*model.UserProfile
	failOn   string
	err      error
	created  *model.Order
	members  []*model.TeamMember
}

func (f *fakeBoardStore) fail(op string) error {
	if f.failOn == op {
		return f.err
	}
	return nil
}

func (f *fakeBoardStore) ListOrders(ctx context.Context, orgID string) ([]*model.Order, error) {
	return f.orders, f.fail("orders")
}

func (f *fakeBoardStore) GetOrder(ctx context.Context, orgID, id string) (*model.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBoardStore) CreateOrder(ctx context.Context, o *model.Order) error {
	f.created = o
	f.orders = append(f.orders, o)
	return f.fail("create")
}

func (f *fakeBoardStore) UpdateOrder(ctx context.Context, o *model.Order) error {
	for i, existing := range f.orders {
		if existing.ID == o.ID {
			f.orders[i] = o
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBoardStore) DeleteOrder(ctx context.Context, orgID, id string) error {
	return repository.ErrNotFound
}

func (f *fakeBoardStore) ListProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	return f.profiles, f.fail("profiles")
}

func (f *fakeBoardStore) ListUnassignedProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	return nil, f.fail("unassigned")
}

func (f *fakeBoardStore) ListCustomers(ctx context.Context, orgID string) ([]*model.Customer, error) {
	return nil, f.fail("customers")
}

func (f *fakeBoardStore) ListProducts(ctx context.Context, orgID string) ([]*model.Product, error) {
	return nil, f.fail("products")
}

func (f *fakeBoardStore) ListTeams(ctx context.Context, orgID string, filter repository.TeamFilter) ([]*model.Team, error) {
	if filter.Specialty == "" {
		return f.teams, f.fail("teams")
	}
	var out []*model.Team
	for _, t := range f.teams {
		if t.Specialty == filter.Specialty {
			out = append(out, t)
		}
	}
	return out, f.fail("teams")
}

func (f *fakeBoardStore) GetTeam(ctx context.Context, orgID, id string) (*model.Team, error) {
	for _, t := range f.teams {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBoardStore) CreateTeam(ctx context.Context, t *model.Team) error {
	f.teams = append(f.teams, t)
	return nil
}

func (f *fakeBoardStore) UpdateTeam(ctx context.Context, t *model.Team) error {
	for i, existing := range f.teams {
		if existing.ID == t.ID {
			f.teams[i] = t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBoardStore) DeleteTeam(ctx context.Context, orgID, id string) error {
	return nil
}

func (f *fakeBoardStore) AddTeamMember(ctx context.Context, m *model.TeamMember) error {
	for _, existing := range f.members {
		if existing.TeamID == m.TeamID && existing.UserID == m.UserID {
			return repository.ErrDuplicate
		}
	}
	f.members = append(f.members, m)
	return nil
}

func (f *fakeBoardStore) RemoveTeamMember(ctx context.Context, orgID, memberID string) error {
	return repository.ErrNotFound
}

type fakeTaskStore struct {
	tasks    map[string]*model.SalesTask
	notes    []*model.TaskNote
	lastUser string
	lastNote *model.TaskNote
}

func (f *fakeTaskStore) ListTasks(ctx context.Context, orgID, userID string) ([]*model.SalesTask, error) {
	f.lastUser = userID
	return nil, nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, orgID, id string) (*model.SalesTask, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, t *model.SalesTask) error {
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskStore) UpdateTaskStatus(ctx context.Context, t *model.SalesTask, note *model.TaskNote) error {
	f.tasks[t.ID] = t
	f.lastNote = note
	return nil
}

func (f *fakeTaskStore) CreateTaskNote(ctx context.Context, orgID string, n *model.TaskNote) error {
	if _, ok := f.tasks[n.TaskID]; !ok {
		return repository.ErrNotFound
	}
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeTaskStore) ListTaskNotes(ctx context.Context, orgID, taskID string) ([]*model.TaskNote, error) {
	return f.notes, nil
}

type fakeProfileStore struct {
	profiles map[string]*model.UserProfile
	updated  *model.UserProfile
}

func (f *fakeProfileStore) ListProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfileStore) ListUnassignedProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, orgID, id string) (*model.UserProfile, error) {
	p, ok := f.profiles[id]
	if !ok || p.OrganisationID != orgID {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileStore) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	f.updated = p
	return nil
}
