package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/gobooks/internal/domain"
)

// accountRule names where an automatic posting finds its account:
// the configured default, then the first active account with the role,
// then the well-known code.
type accountRule struct {
	label   string
	setting func(*domain.Settings) *string
	role    domain.AccountRole
	code    string
}

var (
	cashRule = accountRule{
		label:   "cash",
		setting: func(s *domain.Settings) *string { return s.DefaultCashAccountID },
		role:    domain.AccountRoleCash,
		code:    domain.CodeCash,
	}
	salesRule = accountRule{
		label:   "sales",
		setting: func(s *domain.Settings) *string { return s.DefaultSalesAccountID },
		role:    domain.AccountRoleSales,
		code:    domain.CodeSales,
	}
	taxRule = accountRule{
		label:   "sales tax payable",
		setting: func(s *domain.Settings) *string { return s.DefaultTaxAccountID },
		role:    domain.AccountRoleTax,
		code:    domain.CodeSalesTaxPayable,
	}
	feesRule = accountRule{
		label:   "fees expense",
		setting: func(s *domain.Settings) *string { return s.DefaultFeeAccountID },
		role:    domain.AccountRoleFees,
		code:    domain.CodeFees,
	}
	// 2300 shares the PAYABLE role with trade payables, so the code wins over the role.
	feesPayableRule = accountRule{
		label:   "fees payable",
		setting: func(s *domain.Settings) *string { return s.DefaultFeesPayableAccountID },
		code:    domain.CodeFeesPayable,
	}
	cogsRule = accountRule{
		label:   "cost of goods sold",
		setting: func(s *domain.Settings) *string { return s.DefaultCOGSAccountID },
		code:    domain.CodeCOGS,
	}
	inventoryRule = accountRule{
		label:   "inventory",
		setting: func(s *domain.Settings) *string { return s.DefaultInventoryAccountID },
		role:    domain.AccountRoleInventory,
		code:    domain.CodeInventory,
	}
)

type accountResolver struct {
	accountRepo  AccountRepository
	settingsRepo SettingsRepository
}

// resolve finds the account for rule. It returns a wrapped ErrAccountNotFound
// when nothing matches.
func (r accountResolver) resolve(ctx context.Context, tx Transaction, settings *domain.Settings, rule accountRule) (*domain.Account, error) {
	if settings != nil {
		if id := rule.setting(settings); id != nil && *id != "" {
			account, err := r.accountRepo.GetByID(ctx, tx, *id)
			if err == nil {
				return account, nil
			}
			if !errors.Is(err, domain.ErrAccountNotFound) {
				return nil, err
			}
		}
	}

	if rule.role != domain.AccountRoleNone {
		active := true
		accounts, err := r.accountRepo.List(ctx, tx, domain.AccountFilter{IsActive: &active})
		if err != nil {
			return nil, err
		}
		for _, a := range accounts {
			if a.HasRole(rule.role) {
				return a, nil
			}
		}
	}

	account, err := r.accountRepo.GetByCode(ctx, tx, rule.code)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: no %s account configured", domain.ErrAccountNotFound, rule.label)
		}
		return nil, err
	}
	return account, nil
}

func (r accountResolver) settings(ctx context.Context, tx Transaction) (*domain.Settings, error) {
	if r.settingsRepo == nil {
		return &domain.Settings{}, nil
	}
	return r.settingsRepo.Get(ctx, tx)
}
