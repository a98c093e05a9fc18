package domain

// PaymentMethodType classifies how a passenger paid
type PaymentMethodType string

const (
	PaymentMethodCard        PaymentMethodType = "CARD"
	PaymentMethodMobileMoney PaymentMethodType = "MOBILE_MONEY"
	PaymentMethodCash        PaymentMethodType = "CASH"
)

// IsValid checks if the method type is known
func (m PaymentMethodType) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodMobileMoney, PaymentMethodCash:
		return true
	}
	return false
}

// Allowed providers per method type. CASH only ever carries the literal
// CASH provider.
var (
	cardProviders = map[string]struct{}{
		"VISA":       {},
		"MASTERCARD": {},
		"AMEX":       {},
	}
	mobileMoneyProviders = map[string]struct{}{
		"MPESA":        {},
		"MTN_MOMO":     {},
		"AIRTEL_MONEY": {},
	}
)

// ValidatePaymentMethod checks a captured payment's method type and, when a
// provider is present, that the provider belongs to the method's allowed set.
// An empty provider is accepted.
func ValidatePaymentMethod(method PaymentMethodType, provider string) error {
	if !method.IsValid() {
		return ErrInvalidPaymentMethod
	}
	if provider == "" {
		return nil
	}
	switch method {
	case PaymentMethodCard:
		if _, ok := cardProviders[provider]; !ok {
			return ErrInvalidPaymentProvider
		}
	case PaymentMethodMobileMoney:
		if _, ok := mobileMoneyProviders[provider]; !ok {
			return ErrInvalidPaymentProvider
		}
	case PaymentMethodCash:
		if provider != "CASH" {
			return ErrInvalidPaymentProvider
		}
	}
	return nil
}
