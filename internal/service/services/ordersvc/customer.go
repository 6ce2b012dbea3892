package ordersvc

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/customer"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
)

// resolveCustomer returns the customer the order points to.
// A casual customer is created on the fly (bank account first) or updated when it already exists.
// A fixed customer must already exist and is only referenced.
func (s *OrderService) resolveCustomer(ctx context.Context, o *order.Order, actorID int64) (*customer.Customer, error) {
	var c customer.Customer
	if o.Customer != nil {
		c = *o.Customer
	} else {
		c = customer.Customer{ID: o.CustomerID, Type: customer.TypeFixed}
	}
	if c.OrganizationID == 0 {
		c.OrganizationID = o.OrganizationID
	}

	switch c.Type {
	case customer.TypeCasual:
		if c.IsPersisted() {
			updated, err := s.customerRepo.Update(ctx, c)
			if err != nil {
				return nil, errs.Internal("CUSTOMER_UPDATE_FAILED", err)
			}

			return &updated, nil
		}

		if c.BankAccount != nil && c.BankAccount.ID == 0 && c.BankAccount.AccountNumber != "" {
			account, err := s.customerRepo.CreateBankAccount(ctx, c.OrganizationID, *c.BankAccount)
			if err != nil {
				return nil, errs.Internal("BANK_ACCOUNT_CREATE_FAILED", err)
			}
			c.BankAccount = &account
		}

		created, err := s.customerRepo.Create(ctx, c)
		if err != nil {
			return nil, errs.Internal("CUSTOMER_CREATE_FAILED", err)
		}

		return &created, nil
	case customer.TypeFixed, "":
		if !c.IsPersisted() {
			return nil, errs.ValidationFields("CUSTOMER_REQUIRED", map[string]string{
				"customer.id": "a fixed customer must reference an existing customer",
			})
		}

		return &c, nil
	default:
		return nil, errs.ValidationFields("INVALID_CUSTOMER", map[string]string{
			"customer.type": "must be FIXED or CASUAL",
		})
	}
}
