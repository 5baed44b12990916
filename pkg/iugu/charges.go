package iugu

import (
	"context"
	"net/http"
)

// CreateCharge performs a direct charge. A card decline is not an error at
// this level: the gateway answers 200 with Success=false and the acquirer
// response code in LR.
func (c *Client) CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/charge", params, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// RefundInvoice refunds a paid invoice, returning whether the gateway
// accepted the refund.
func (c *Client) RefundInvoice(ctx context.Context, invoiceID string) (bool, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices/"+invoiceID+"/refund", nil, &invoice); err != nil {
		return false, err
	}
	return invoice.Status == "refunded", nil
}
