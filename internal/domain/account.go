package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeCOGS      AccountType = "COST_OF_GOODS_SOLD"
)

var validAccountTypes = map[AccountType]bool{
	AccountTypeAsset:     true,
	AccountTypeLiability: true,
	AccountTypeEquity:    true,
	AccountTypeRevenue:   true,
	AccountTypeExpense:   true,
	AccountTypeCOGS:      true,
}

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	return validAccountTypes[t]
}

// IsDebitNormal reports whether balances of this type grow with debits.
func (t AccountType) IsDebitNormal() bool {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeCOGS:
		return true
	default:
		return false
	}
}

// AccountRole tags an account with the part it plays in reports and postings.
type AccountRole string

const (
	AccountRoleNone             AccountRole = ""
	AccountRoleCash             AccountRole = "CASH"
	AccountRoleReceivable       AccountRole = "RECEIVABLE"
	AccountRolePayable          AccountRole = "PAYABLE"
	AccountRoleInventory        AccountRole = "INVENTORY"
	AccountRoleTax              AccountRole = "TAX"
	AccountRoleDepreciation     AccountRole = "DEPRECIATION"
	AccountRoleAmortization     AccountRole = "AMORTIZATION"
	AccountRoleFixedAsset       AccountRole = "FIXED_ASSET"
	AccountRoleFees             AccountRole = "FEES"
	AccountRoleSales            AccountRole = "SALES"
	AccountRoleRetainedEarnings AccountRole = "RETAINED_EARNINGS"
)

var validAccountRoles = map[AccountRole]bool{
	AccountRoleNone:             true,
	AccountRoleCash:             true,
	AccountRoleReceivable:       true,
	AccountRolePayable:          true,
	AccountRoleInventory:        true,
	AccountRoleTax:              true,
	AccountRoleDepreciation:     true,
	AccountRoleAmortization:     true,
	AccountRoleFixedAsset:       true,
	AccountRoleFees:             true,
	AccountRoleSales:            true,
	AccountRoleRetainedEarnings: true,
}

// IsValid reports whether r is a known role. The empty role is valid.
func (r AccountRole) IsValid() bool {
	return validAccountRoles[r]
}

// legacyRoleHints maps name fragments to roles for accounts created before roles existed.
// Order matters: "Accounts Payable" must not be read as cash, "Sales Tax Payable" is tax.
var legacyRoleHints = []struct {
	fragment string
	role     AccountRole
}{
	{"tax", AccountRoleTax},
	{"receivable", AccountRoleReceivable},
	{"payable", AccountRolePayable},
	{"inventory", AccountRoleInventory},
	{"depreciation", AccountRoleDepreciation},
	{"amortization", AccountRoleAmortization},
	{"fee", AccountRoleFees},
	{"cash", AccountRoleCash},
}

// Account is a node in the chart of accounts.
type Account struct {
	ID        string
	Code      string
	Name      string
	Type      AccountType
	Role      AccountRole
	ParentID  *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveRole returns the explicit role, or one inferred from the account name
// when no role was assigned.
func (a *Account) EffectiveRole() AccountRole {
	if a.Role != AccountRoleNone {
		return a.Role
	}
	name := strings.ToLower(a.Name)
	for _, hint := range legacyRoleHints {
		if strings.Contains(name, hint.fragment) {
			return hint.role
		}
	}
	return AccountRoleNone
}

// HasRole reports whether the account plays the given role.
func (a *Account) HasRole(role AccountRole) bool {
	return a.EffectiveRole() == role
}

// NormalBalance signs a debit/credit pair by the account's normal side,
// so that a healthy account reports a positive number.
func (a *Account) NormalBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if a.Type.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountFilter narrows account listings. Nil fields are ignored.
type AccountFilter struct {
	Type     *AccountType
	ParentID *string
	IsActive *bool
}

// Matches reports whether the account passes the filter.
func (f AccountFilter) Matches(a *Account) bool {
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	if f.ParentID != nil && (a.ParentID == nil || *a.ParentID != *f.ParentID) {
		return false
	}
	if f.IsActive != nil && a.IsActive != *f.IsActive {
		return false
	}
	return true
}

// DefaultAccount describes a seeded chart-of-accounts row.
type DefaultAccount struct {
	Code string
	Name string
	Type AccountType
	Role AccountRole
}

// Well-known account codes used by posting rules when no default is configured.
const (
	CodeCash             = "1000"
	CodeReceivable       = "1100"
	CodeInventory        = "1200"
	CodePayable          = "2000"
	CodeSalesTaxPayable  = "2200"
	CodeFeesPayable      = "2300"
	CodeRetainedEarnings = "3100"
	CodeSales            = "4000"
	CodeCOGS             = "5000"
	CodeFees             = "5100"
)

// DefaultChart is the chart of accounts seeded into a new ledger.
var DefaultChart = []DefaultAccount{
	{Code: "1000", Name: "Cash and Cash Equivalents", Type: AccountTypeAsset, Role: AccountRoleCash},
	{Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Role: AccountRoleReceivable},
	{Code: "1200", Name: "Inventory", Type: AccountTypeAsset, Role: AccountRoleInventory},
	{Code: "1300", Name: "Prepaid Expenses", Type: AccountTypeAsset},
	{Code: "1400", Name: "Fixed Assets", Type: AccountTypeAsset, Role: AccountRoleFixedAsset},
	{Code: "1500", Name: "Accumulated Depreciation", Type: AccountTypeAsset, Role: AccountRoleDepreciation},
	{Code: "2000", Name: "Accounts Payable", Type: AccountTypeLiability, Role: AccountRolePayable},
	{Code: "2100", Name: "Accrued Expenses", Type: AccountTypeLiability},
	{Code: "2200", Name: "Sales Tax Payable", Type: AccountTypeLiability, Role: AccountRoleTax},
	{Code: "2300", Name: "Shopify Fees Payable", Type: AccountTypeLiability, Role: AccountRolePayable},
	{Code: "3000", Name: "Owner's Equity", Type: AccountTypeEquity},
	{Code: "3100", Name: "Retained Earnings", Type: AccountTypeEquity, Role: AccountRoleRetainedEarnings},
	{Code: "4000", Name: "Sales Revenue", Type: AccountTypeRevenue, Role: AccountRoleSales},
	{Code: "4100", Name: "Shipping Revenue", Type: AccountTypeRevenue},
	{Code: "4200", Name: "Other Income", Type: AccountTypeRevenue},
	{Code: "5000", Name: "Cost of Goods Sold", Type: AccountTypeCOGS},
	{Code: "5100", Name: "Shopify Fees", Type: AccountTypeExpense, Role: AccountRoleFees},
	{Code: "5200", Name: "Payment Processing Fees", Type: AccountTypeExpense, Role: AccountRoleFees},
	{Code: "5300", Name: "Shipping Costs", Type: AccountTypeExpense},
	{Code: "5400", Name: "Marketing Expenses", Type: AccountTypeExpense},
	{Code: "5500", Name: "General & Administrative", Type: AccountTypeExpense},
	{Code: "5600", Name: "Depreciation Expense", Type: AccountTypeExpense, Role: AccountRoleDepreciation},
}
