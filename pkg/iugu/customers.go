package iugu

import (
	"context"
	"net/http"
)

// CreateCustomer registers a new gateway customer. Extra gateway-side fields
// (cpf_cnpj, address, custom variables) go into fields.
func (c *Client) CreateCustomer(ctx context.Context, email string, fields map[string]any) (*Customer, error) {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["email"] = email

	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", payload, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// FetchCustomer retrieves a customer by its gateway identifier.
func (c *Client) FetchCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+id, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer overwrites gateway-side customer fields.
func (c *Client) UpdateCustomer(ctx context.Context, id string, fields map[string]any) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodPut, "/customers/"+id, fields, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}
