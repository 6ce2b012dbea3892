package dataapi

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/tms/internal/dal/dataapi"
	"github.com/corray333/backend-labs/tms/internal/service/models/customer"
)

const (
	customersEntity    = "customers"
	bankAccountsEntity = "bank-accounts"
)

// CustomerDal is the write shape of a customer.
type CustomerDal struct {
	Organization    int64         `json:"organization,omitempty"`
	Type            customer.Type `json:"type"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	TaxCode         string        `json:"taxCode,omitempty"`
	Email           string        `json:"email,omitempty"`
	PhoneNumber     string        `json:"phoneNumber,omitempty"`
	BusinessAddress string        `json:"businessAddress,omitempty"`
	BankAccount     int64         `json:"bankAccount,omitempty"`
}

// CustomerDalFromModel converts service layer Customer model to CustomerDal.
func CustomerDalFromModel(c *customer.Customer) *CustomerDal {
	dal := &CustomerDal{
		Organization:    c.OrganizationID,
		Type:            c.Type,
		Code:            c.Code,
		Name:            c.Name,
		TaxCode:         c.TaxCode,
		Email:           c.Email,
		PhoneNumber:     c.PhoneNumber,
		BusinessAddress: c.BusinessAddress,
	}
	if c.BankAccount != nil {
		dal.BankAccount = c.BankAccount.ID
	}

	return dal
}

// CustomerRepository stores customers through the data API.
type CustomerRepository struct {
	client *dataapi.Client
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(client *dataapi.Client) *CustomerRepository {
	return &CustomerRepository{client: client}
}

// Create stores a new customer and returns it with its id.
func (r *CustomerRepository) Create(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	rec, err := r.client.Create(ctx, customersEntity, CustomerDalFromModel(&c))
	if err != nil {
		return customer.Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}
	c.ID = rec.ID()

	return c, nil
}

// Update overwrites an existing customer.
func (r *CustomerRepository) Update(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	if _, err := r.client.Update(ctx, customersEntity, c.ID, CustomerDalFromModel(&c)); err != nil {
		return customer.Customer{}, fmt.Errorf("failed to update customer: %w", err)
	}

	return c, nil
}

// CreateBankAccount stores a bank account owned by the organization.
func (r *CustomerRepository) CreateBankAccount(
	ctx context.Context,
	organizationID int64,
	account customer.BankAccount,
) (customer.BankAccount, error) {
	rec, err := r.client.Create(ctx, bankAccountsEntity, map[string]any{
		"organization":  organizationID,
		"accountNumber": account.AccountNumber,
		"holderName":    account.HolderName,
		"bankName":      account.BankName,
		"bankBranch":    account.BankBranch,
	})
	if err != nil {
		return customer.BankAccount{}, fmt.Errorf("failed to create bank account: %w", err)
	}
	account.ID = rec.ID()

	return account, nil
}
