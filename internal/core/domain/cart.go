package domain

type PaymentMethod string

const (
	PaymentNone       PaymentMethod = ""
	PaymentCreditCard PaymentMethod = "credit-card"
	PaymentDebitCard  PaymentMethod = "debit-card"
	PaymentCash       PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentNone, PaymentCreditCard, PaymentDebitCard, PaymentCash:
		return true
	}
	return false
}

// LineItem is a catalog product plus the quantity held in the cart.
// The product ID is the line's identity.
type LineItem struct {
	Product
	Amount int `json:"amount"`
}

type Address struct {
	PostalCode string `json:"cep"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"uf"`
}

// Cart is a point-in-time copy of a cart store's state.
type Cart struct {
	Items   []LineItem    `json:"items"`
	Payment PaymentMethod `json:"payment"`
	Address Address       `json:"address"`
}

// ItemCount sums the amount of every line.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Amount
	}
	return total
}

func (c Cart) Find(productID int) (LineItem, bool) {
	for _, item := range c.Items {
		if item.ID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

// CloneItems copies items deeply enough that callers cannot reach back
// into the source slice or its tag slices.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Tags != nil {
			out[i].Tags = append([]string(nil), item.Tags...)
		}
	}
	return out
}
