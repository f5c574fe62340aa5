package model

import (
	"sort"
	"time"
)

// CustomerType distinguishes private persons from companies.
type CustomerType string

// CustomerType constants.
const (
	CustomerPrivate CustomerType = "private"
	CustomerCompany CustomerType = "company"
)

// VAT handling options.
const (
	VATStandard       = "25%"
	VATReverseCharged = "omvänd byggmoms"
)

// Invoice delivery methods.
const (
	DeliveryEmail    = "e-post"
	DeliveryLetter   = "brev"
	DeliveryEInvoice = "e-faktura"
)

// Customer is a customer record of an organisation.
type Customer struct {
	ID                    string       `json:"id"`
	OrganisationID        string       `json:"organisation_id"`
	Name                  string       `json:"name"`
	Email                 *string      `json:"email"`
	PhoneNumber           *string      `json:"phone_number"`
	Address               *string      `json:"address"`
	PostalCode            *string      `json:"postal_code"`
	City                  *string      `json:"city"`
	CustomerType          CustomerType `json:"customer_type"`
	OrgNumber             *string      `json:"org_number"`
	SalesArea             *string      `json:"sales_area"`
	VATHandling           string       `json:"vat_handling"`
	EInvoiceAddress       *string      `json:"e_invoice_address"`
	InvoiceDeliveryMethod string       `json:"invoice_delivery_method"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// Lead is a sales lead tied to a customer.
type Lead struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customer_id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	EstimatedValue *float64  `json:"estimated_value"`
	AssignedTo     *string   `json:"assigned_to"`
	CreatedAt      time.Time `json:"created_at"`
}

// Quote is an offer sent to a customer.
type Quote struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	TotalAmount *float64  `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job is a unit of field work for a customer.
type Job struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Value      *float64  `json:"value"`
	AssignedTo *string   `json:"assigned_to"`
	CreatedAt  time.Time `json:"created_at"`
}

// Invoice is a bill sent to a customer.
type Invoice struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Status        string    `json:"status"`
	Amount        *float64  `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// CustomerInteractions groups everything that happened with one customer.
type CustomerInteractions struct {
	Leads    []*Lead    `json:"leads"`
	Quotes   []*Quote   `json:"quotes"`
	Jobs     []*Job     `json:"jobs"`
	Invoices []*Invoice `json:"invoices"`
}

// TimelineEntry is one row of the merged customer timeline.
type TimelineEntry struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Date       time.Time `json:"date"`
	AssignedTo *string   `json:"assigned_to,omitempty"`
	Value      *float64  `json:"value,omitempty"`
}

// Timeline merges all interactions into one list, newest first.
func (ci *CustomerInteractions) Timeline() []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(ci.Leads)+len(ci.Quotes)+len(ci.Jobs)+len(ci.Invoices))
	for _, l := range ci.Leads {
		entries = append(entries, TimelineEntry{
			ID: "lead-" + l.ID, Type: "lead", Title: l.Title, Status: l.Status,
			Date: l.CreatedAt, AssignedTo: l.AssignedTo, Value: l.EstimatedValue,
		})
	}
	for _, q := range ci.Quotes {
		entries = append(entries, TimelineEntry{
			ID: "quote-" + q.ID, Type: "quote", Title: q.Title, Status: q.Status,
			Date: q.CreatedAt, Value: q.TotalAmount,
		})
	}
	for _, j := range ci.Jobs {
		entries = append(entries, TimelineEntry{
			ID: "job-" + j.ID, Type: "job", Title: j.Title, Status: j.Status,
			Date: j.CreatedAt, AssignedTo: j.AssignedTo, Value: j.Value,
		})
	}
	for _, inv := range ci.Invoices {
		entries = append(entries, TimelineEntry{
			ID: "invoice-" + inv.ID, Type: "invoice", Title: "Faktura " + inv.InvoiceNumber, Status: inv.Status,
			Date: inv.CreatedAt, Value: inv.Amount,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}
