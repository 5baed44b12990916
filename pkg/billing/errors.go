package billing

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrOwnerNotFound        = errors.New("billing: owner not found")
	ErrCardNotFound         = errors.New("billing: card not found")
	ErrInvoiceNotFound      = errors.New("billing: invoice not found")

	ErrNoRemoteCustomer = errors.New("billing: owner has no gateway customer, create a subscription or charge with an email first")
	ErrNoPaymentSource  = errors.New("billing: no payment source provided")

	ErrCardValidationFailed = errors.New("billing: card validation charge failed")

	ErrLockUnavailable = errors.New("billing: could not acquire subscription lock")
)
