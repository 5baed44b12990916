package iugu

// DateLayout is the calendar-date format used by the gateway for expiry and
// due dates.
const DateLayout = "2006-01-02"

// Customer is a gateway-side customer resource.
type Customer struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Name                   string `json:"name"`
	DefaultPaymentMethodID string `json:"default_payment_method_id"`
}

// PaymentMethod is a stored payment method (credit card) attached to a
// customer.
type PaymentMethod struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	ItemType    string          `json:"item_type"`
	Data        PaymentCardData `json:"data"`
}

// PaymentCardData carries the displayable card attributes.
type PaymentCardData struct {
	Brand         string `json:"brand"`
	HolderName    string `json:"holder_name"`
	DisplayNumber string `json:"display_number"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
}

// PaymentMethodParams creates a payment method from a checkout token.
type PaymentMethodParams struct {
	Description  string `json:"description,omitempty"`
	Token        string `json:"token"`
	SetAsDefault bool   `json:"set_as_default"`
}

// ChargeItem is a single billable line on a charge or invoice.
type ChargeItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	PriceCents  int    `json:"price_cents"`
}

// ChargeParams describes a direct (one-off) charge.
type ChargeParams struct {
	Token                   string       `json:"token,omitempty"`
	Method                  string       `json:"method,omitempty"`
	CustomerPaymentMethodID string       `json:"customer_payment_method_id,omitempty"`
	CustomerID              string       `json:"customer_id,omitempty"`
	Email                   string       `json:"email,omitempty"`
	InvoiceID               string       `json:"invoice_id,omitempty"`
	Items                   []ChargeItem `json:"items,omitempty"`
}

// Charge is the outcome of a direct charge attempt. A declined card comes
// back with Success=false plus a message and acquirer response code (LR), not
// as an HTTP-level error.
type Charge struct {
	Success   bool   `json:"success"`
	InvoiceID string `json:"invoice_id"`
	Message   string `json:"message"`
	LR        string `json:"LR"`
}

// InvoiceParams describes a standalone invoice.
type InvoiceParams struct {
	CustomerID string       `json:"customer_id,omitempty"`
	Email      string       `json:"email,omitempty"`
	DueDate    string       `json:"due_date"`
	Items      []ChargeItem `json:"items"`
}

// Invoice is a gateway invoice.
type Invoice struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	DueDate    string `json:"due_date"`
	TotalCents int    `json:"total_cents"`
	SecureURL  string `json:"secure_url"`
}

// InvoiceStatusPaid marks an invoice that has been settled.
const InvoiceStatusPaid = "paid"

// ListInvoicesParams filters an invoice listing.
type ListInvoicesParams struct {
	CustomerID string
	Limit      int
}

// CustomVariable is an arbitrary name/value pair forwarded to the gateway and
// echoed back on invoices.
type CustomVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SubItem is an extra billable line item attached to a subscription.
type SubItem struct {
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents"`
	Quantity    int    `json:"quantity"`
	Recurrent   bool   `json:"recurrent"`
}

// SubscriptionParams describes a new recurring subscription.
type SubscriptionParams struct {
	PlanIdentifier      string           `json:"plan_identifier"`
	CustomerID          string           `json:"customer_id"`
	ExpiresAt           string           `json:"expires_at,omitempty"`
	OnlyOnChargeSuccess bool             `json:"only_on_charge_success,omitempty"`
	PayableWith         string           `json:"payable_with,omitempty"`
	CustomVariables     []CustomVariable `json:"custom_variables,omitempty"`
	SubItems            []SubItem        `json:"subitems,omitempty"`
}

// Subscription is a gateway-side recurring subscription.
type Subscription struct {
	ID             string `json:"id"`
	PlanIdentifier string `json:"plan_identifier"`
	CustomerID     string `json:"customer_id"`
	ExpiresAt      string `json:"expires_at"`
	Suspended      bool   `json:"suspended"`
	Active         bool   `json:"active"`
}
