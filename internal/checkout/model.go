package checkout

import "fmt"

type ShippingAddress struct {
	ID         string `json:"id,omitempty"`
	OwnerID    string `json:"ownerId,omitempty"`
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

// DisplayLine flattens the address into the single string stored on orders.
func (a ShippingAddress) DisplayLine() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.Region, a.PostalCode)
}

type PaymentKind string

const (
	KindCreditCard PaymentKind = "credit_card"
	KindDebitCard  PaymentKind = "debit_card"
	KindPayPal     PaymentKind = "paypal"
)

type PaymentMethod struct {
	ID      string      `json:"id,omitempty"`
	OwnerID string      `json:"ownerId,omitempty"`
	Kind    PaymentKind `json:"kind" validate:"required,oneof=credit_card debit_card paypal"`

	// Card kinds. The full number is input-only: it is reduced to Last4
	// before anything is stored or cached.
	CardholderName string `json:"cardholderName,omitempty" validate:"required_if=Kind credit_card,required_if=Kind debit_card"`
	CardNumber     string `json:"-"`
	Last4          string `json:"last4,omitempty"`
	ExpiryMonth    int    `json:"expiryMonth,omitempty" validate:"omitempty,min=1,max=12"`
	ExpiryYear     int    `json:"expiryYear,omitempty"`
	Brand          string `json:"brand,omitempty"`

	// Wallet kinds.
	Email string `json:"email,omitempty" validate:"required_if=Kind paypal,omitempty,email"`
}

func (p PaymentMethod) isCard() bool {
	return p.Kind == KindCreditCard || p.Kind == KindDebitCard
}

// normalize derives Last4 from a supplied card number and drops the number.
func (p *PaymentMethod) normalize() {
	if p.isCard() && p.CardNumber != "" {
		if n := len(p.CardNumber); n > 4 {
			p.Last4 = p.CardNumber[n-4:]
		} else {
			p.Last4 = p.CardNumber
		}
	}
	p.CardNumber = ""
}
