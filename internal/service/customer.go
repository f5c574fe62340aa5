package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

// Customer list paging.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CustomerStore is the persistence needed by CustomerService.
type CustomerStore interface {
	SearchCustomers(ctx context.Context, orgID, q string, page, limit int) (*repository.CustomerPage, error)
	GetCustomer(ctx context.Context, orgID, id string) (*model.Customer, error)
	FindDuplicateCustomer(ctx context.Context, orgID, email, name, excludeID string) (string, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
	UpdateCustomer(ctx context.Context, c *model.Customer) error
	DeleteCustomer(ctx context.Context, orgID, id string) error
	GetCustomerInteractions(ctx context.Context, orgID, customerID string) (*model.CustomerInteractions, error)
}

// CustomerService handles customer business logic.
type CustomerService struct {
	store   CustomerStore
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(store CustomerStore, logger *slog.Logger, recorder metrics.Recorder) *CustomerService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CustomerService{
		store:   store,
		logger:  logger.With("component", "customers"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CustomerInput carries the editable fields of a customer.
type CustomerInput struct {
	Name                  string
	Email                 *string
	PhoneNumber           *string
	Address               *string
	PostalCode            *string
	City                  *string
	CustomerType          model.CustomerType
	OrgNumber             *string
	SalesArea             *string
	VATHandling           string
	EInvoiceAddress       *string
	InvoiceDeliveryMethod string
}

// CustomerPage is one page of search results.
type CustomerPage struct {
	Customers  []*model.Customer `json:"customers"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// CustomerDetails is a customer with its interaction history.
type CustomerDetails struct {
	Customer *model.Customer       `json:"customer"`
	Leads    []*model.Lead         `json:"leads"`
	Quotes   []*model.Quote        `json:"quotes"`
	Jobs     []*model.Job          `json:"jobs"`
	Invoices []*model.Invoice      `json:"invoices"`
	Timeline []model.TimelineEntry `json:"timeline"`
}

// Search returns one page of customers matching q.
func (s *CustomerService) Search(ctx context.Context, orgID, q string, page, limit int) (*CustomerPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	res, err := s.store.SearchCustomers(ctx, orgID, strings.TrimSpace(q), page, limit)
	if err != nil {
		return nil, err
	}

	return &CustomerPage{
		Customers:  res.Customers,
		TotalCount: res.TotalCount,
		Page:       page,
		Limit:      limit,
		TotalPages: (res.TotalCount + limit - 1) / limit,
	}, nil
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, orgID, id string) (*model.Customer, error) {
	c, err := s.store.GetCustomer(ctx, orgID, id)
	return c, mapStoreError(err)
}

// Details returns a customer with leads, quotes, jobs, invoices and the
// merged timeline.
func (s *CustomerService) Details(ctx context.Context, orgID, id string) (*CustomerDetails, error) {
	c, err := s.store.GetCustomer(ctx, orgID, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	ci, err := s.store.GetCustomerInteractions(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	return &CustomerDetails{
		Customer: c,
		Leads:    ci.Leads,
		Quotes:   ci.Quotes,
		Jobs:     ci.Jobs,
		Invoices: ci.Invoices,
		Timeline: ci.Timeline(),
	}, nil
}

// Create validates, runs the duplicate check and stores a new customer.
func (s *CustomerService) Create(ctx context.Context, orgID string, in CustomerInput) (*model.Customer, error) {
	c, err := normalizeCustomer(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, orgID, c, ""); err != nil {
		return nil, err
	}

	now := s.now()
	c.ID = uuid.New().String()
	c.OrganisationID = orgID
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("customer", opCreate)
	s.logger.Info("customer created", "customer_id", c.ID, "organisation_id", orgID)
	return c, nil
}

// Update validates, runs the duplicate check excluding the record itself
// and writes the customer.
func (s *CustomerService) Update(ctx context.Context, orgID, id string, in CustomerInput) (*model.Customer, error) {
	c, err := normalizeCustomer(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, orgID, c, id); err != nil {
		return nil, err
	}

	c.ID = id
	c.OrganisationID = orgID
	c.UpdatedAt = s.now()

	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("customer", opUpdate)
	return c, nil
}

// Delete removes a customer.
func (s *CustomerService) Delete(ctx context.Context, orgID, id string) error {
	if err := s.store.DeleteCustomer(ctx, orgID, id); err != nil {
		return mapStoreError(err)
	}
	s.metrics.IncMutation("customer", opDelete)
	s.logger.Info("customer deleted", "customer_id", id, "organisation_id", orgID)
	return nil
}

func (s *CustomerService) checkDuplicate(ctx context.Context, orgID string, c *model.Customer, excludeID string) error {
	field, err := s.store.FindDuplicateCustomer(ctx, orgID, deref(c.Email), c.Name, excludeID)
	if err != nil {
		return err
	}
	if field != "" {
		return &DuplicateError{Entity: "customer", Field: field}
	}
	return nil
}

// normalizeCustomer validates input and applies defaults. Blank optional
// strings become nil and org_number is only kept for companies.
func normalizeCustomer(in CustomerInput) (*model.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}

	c := &model.Customer{
		Name:                  name,
		Email:                 nullIfBlank(in.Email),
		PhoneNumber:           nullIfBlank(in.PhoneNumber),
		Address:               nullIfBlank(in.Address),
		PostalCode:            nullIfBlank(in.PostalCode),
		City:                  nullIfBlank(in.City),
		CustomerType:          in.CustomerType,
		OrgNumber:             nullIfBlank(in.OrgNumber),
		SalesArea:             nullIfBlank(in.SalesArea),
		VATHandling:           strings.TrimSpace(in.VATHandling),
		EInvoiceAddress:       nullIfBlank(in.EInvoiceAddress),
		InvoiceDeliveryMethod: strings.TrimSpace(in.InvoiceDeliveryMethod),
	}

	if c.Email != nil {
		if _, err := mail.ParseAddress(*c.Email); err != nil {
			return nil, invalid("email", "email is invalid")
		}
	}

	switch c.CustomerType {
	case "":
		c.CustomerType = model.CustomerCompany
	case model.CustomerPrivate, model.CustomerCompany:
	default:
		return nil, invalid("customer_type", "customer_type must be private or company")
	}
	if c.CustomerType != model.CustomerCompany {
		c.OrgNumber = nil
	}

	switch c.VATHandling {
	case "":
		c.VATHandling = model.VATStandard
	case model.VATStandard, model.VATReverseCharged:
	default:
		return nil, invalid("vat_handling", "vat_handling must be %q or %q", model.VATStandard, model.VATReverseCharged)
	}

	switch c.InvoiceDeliveryMethod {
	case "":
		c.InvoiceDeliveryMethod = model.DeliveryEmail
	case model.DeliveryEmail, model.DeliveryLetter, model.DeliveryEInvoice:
	default:
		return nil, invalid("invoice_delivery_method", "invoice_delivery_method must be e-post, brev or e-faktura")
	}

	return c, nil
}
