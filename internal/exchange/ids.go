package exchange

import "github.com/google/uuid"

// newClientOrderID returns the idempotency key attached to every order
// submission, so a retried request cannot double-place an order.
func newClientOrderID() string {
	return uuid.NewString()
}
