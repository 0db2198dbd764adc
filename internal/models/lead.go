package models

// Budget brackets offered on the enrollment form.
const (
	BudgetUnder500  = "500"
	BudgetAbove1000 = "above-1000"
	BudgetAbove2000 = "above-2000"
)

// Lead is a prospective student captured by the enrollment form.
type Lead struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Age         int    `json:"age" validate:"required,min=16,max=100"`
	Ambitions   string `json:"ambitions" validate:"required,max=2000"`
	Experience  string `json:"experience" validate:"required,max=2000"`
	Budget      string `json:"budget" validate:"required,oneof=500 above-1000 above-2000"`
	CountryCode string `json:"country_code" validate:"required,max=6"`
	WhatsApp    string `json:"whatsapp" validate:"required"`
}

// BudgetLabel returns the human readable budget bracket.
func (l Lead) BudgetLabel() string {
	switch l.Budget {
	case BudgetUnder500:
		return "$500"
	case BudgetAbove1000:
		return "Above $1,000"
	case BudgetAbove2000:
		return "Above $2,000"
	}
	return l.Budget
}

// Eligible reports whether the lead's budget qualifies for the mentorship.
func (l Lead) Eligible() bool {
	return l.Budget == BudgetAbove1000 || l.Budget == BudgetAbove2000
}

// LeadReceipt is returned after a lead is forwarded.
type LeadReceipt struct {
	Eligible bool `json:"eligible"`
}
