package billing

// PlanPrice describes what a paid plan costs per month.
type PlanPrice struct {
	AmountCents int64
	Currency    string
	Description string
}

var planPricing = map[string]PlanPrice{
	"creator": {AmountCents: 1500, Currency: "USD", Description: "Creator Plan - Monthly"},
}

// PriceFor returns the monthly price for a purchasable plan. The free
// tier and invite-only plans have no price and return false.
func PriceFor(plan string) (PlanPrice, bool) {
	p, ok := planPricing[plan]
	return p, ok
}
