package customer

// Type distinguishes reusable customers from one-off ones.
type Type string

const (
	// TypeFixed is a registered customer referenced by id.
	TypeFixed Type = "FIXED"
	// TypeCasual is created together with the order that mentions it.
	TypeCasual Type = "CASUAL"
)

// BankAccount is the payout account attached to a casual customer.
type BankAccount struct {
	ID            int64  `json:"id,omitempty"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName"`
	BankName      string `json:"bankName"`
	BankBranch    string `json:"bankBranch,omitempty"`
}

// Customer represents an order customer.
type Customer struct {
	ID              int64        `json:"id,omitempty"`
	OrganizationID  int64        `json:"organizationId"`
	Type            Type         `json:"type"`
	Code            string       `json:"code"`
	Name            string       `json:"name"`
	TaxCode         string       `json:"taxCode,omitempty"`
	Email           string       `json:"email,omitempty"`
	PhoneNumber     string       `json:"phoneNumber,omitempty"`
	BusinessAddress string       `json:"businessAddress,omitempty"`
	BankAccount     *BankAccount `json:"bankAccount,omitempty"`
}

// IsPersisted reports whether the customer already has a store id.
func (c *Customer) IsPersisted() bool {
	return c.ID > 0
}
