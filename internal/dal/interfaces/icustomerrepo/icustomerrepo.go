package icustomerrepo

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/service/models/customer"
)

// ICustomerRepository is an interface for the customer repository.
type ICustomerRepository interface {
	Create(ctx context.Context, c customer.Customer) (customer.Customer, error)
	Update(ctx context.Context, c customer.Customer) (customer.Customer, error)
	CreateBankAccount(ctx context.Context, organizationID int64, account customer.BankAccount) (customer.BankAccount, error)
}
