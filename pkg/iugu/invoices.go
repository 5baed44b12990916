package iugu

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CreateInvoice creates a standalone invoice.
func (c *Client) CreateInvoice(ctx context.Context, params InvoiceParams) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", params, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FetchInvoice retrieves an invoice by its gateway identifier.
func (c *Client) FetchInvoice(ctx context.Context, id string) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+id, nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListInvoices lists invoices, optionally scoped to a customer.
func (c *Client) ListInvoices(ctx context.Context, params ListInvoicesParams) ([]Invoice, error) {
	query := url.Values{}
	if params.CustomerID != "" {
		query.Set("customer_id", params.CustomerID)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	path := "/invoices"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	// Iugu wraps listings in an envelope with the total count.
	var result struct {
		TotalItems int       `json:"totalItems"`
		Items      []Invoice `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}
