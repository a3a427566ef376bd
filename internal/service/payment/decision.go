package payment

import "github.com/shopspring/decimal"

const (
	responseApproved = "approved"
	responseDeclined = "declined"

	reasonApproved = "payment approved by provider"
	reasonDeclined = "payment declined by provider"
)

// Decide is the deterministic stand-in for a provider call: the amount is
// treated as a fixed-point value with two decimal places, and the integer
// number of cents decides the outcome: even approves, odd declines.
// 10.00 -> 1000 -> approved; 10.01 -> 1001 -> declined.
func Decide(amount decimal.Decimal) (approved bool, providerResponse, reason string) {
	cents := amount.Shift(2).IntPart()
	if cents%2 == 0 {
		return true, responseApproved, reasonApproved
	}
	return false, responseDeclined, reasonDeclined
}
