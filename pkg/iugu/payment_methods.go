package iugu

import (
	"context"
	"net/http"
)

// CreatePaymentMethod attaches a tokenized card to a customer.
func (c *Client) CreatePaymentMethod(ctx context.Context, customerID string, params PaymentMethodParams) (*PaymentMethod, error) {
	var method PaymentMethod
	if err := c.do(ctx, http.MethodPost, "/customers/"+customerID+"/payment_methods", params, &method); err != nil {
		return nil, err
	}
	return &method, nil
}

// FetchPaymentMethod retrieves a single payment method of a customer.
func (c *Client) FetchPaymentMethod(ctx context.Context, customerID, id string) (*PaymentMethod, error) {
	var method PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/customers/"+customerID+"/payment_methods/"+id, nil, &method); err != nil {
		return nil, err
	}
	return &method, nil
}

// ListPaymentMethods lists the payment methods stored for a customer.
func (c *Client) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/customers/"+customerID+"/payment_methods", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// DeletePaymentMethod removes a stored payment method.
func (c *Client) DeletePaymentMethod(ctx context.Context, customerID, id string) error {
	return c.do(ctx, http.MethodDelete, "/customers/"+customerID+"/payment_methods/"+id, nil, nil)
}
