package enums

// PaymentMethod records how an order is settled. Stored verbatim in orders.payment_method.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodStripe PaymentMethod = "Stripe"
)

func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCOD, PaymentMethodStripe:
		return true
	}
	return false
}

// RequiresGateway is true when the order stays unpaid until the gateway confirms it.
func (p PaymentMethod) RequiresGateway() bool {
	return p.IsValid() && p != PaymentMethodCOD
}
