package dto

import (
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// CustomerRequest is the body of a customer create or update.
type CustomerRequest struct {
	Name                  string             `json:"name"`
	Email                 *string            `json:"email"`
	PhoneNumber           *string            `json:"phone_number"`
	Address               *string            `json:"address"`
	PostalCode            *string            `json:"postal_code"`
	City                  *string            `json:"city"`
	CustomerType          model.CustomerType `json:"customer_type"`
	OrgNumber             *string            `json:"org_number"`
	SalesArea             *string            `json:"sales_area"`
	VATHandling           string             `json:"vat_handling"`
	EInvoiceAddress       *string            `json:"e_invoice_address"`
	InvoiceDeliveryMethod string             `json:"invoice_delivery_method"`
}

// ToInput converts the body to service input.
func (r *CustomerRequest) ToInput() service.CustomerInput {
	return service.CustomerInput{
		Name:                  r.Name,
		Email:                 r.Email,
		PhoneNumber:           r.PhoneNumber,
		Address:               r.Address,
		PostalCode:            r.PostalCode,
		City:                  r.City,
		CustomerType:          r.CustomerType,
		OrgNumber:             r.OrgNumber,
		SalesArea:             r.SalesArea,
		VATHandling:           r.VATHandling,
		EInvoiceAddress:       r.EInvoiceAddress,
		InvoiceDeliveryMethod: r.InvoiceDeliveryMethod,
	}
}
