package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db generated.DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) queries(tx usecase.Transaction) *generated.Queries {
	return generated.New(conn(r.db, tx))
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	err := r.queries(tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:        account.ID,
		Code:      account.Code,
		Name:      account.Name,
		Type:      string(account.Type),
		Role:      string(account.Role),
		ParentID:  optionalText(account.ParentID),
		IsActive:  account.IsActive,
		CreatedAt: timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})

	return mapConstraintError(err)
}

// Update saves the mutable fields of an account. The code and type never change.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	n, err := r.queries(tx).UpdateAccount(ctx, generated.UpdateAccountParams{
		ID:        account.ID,
		Name:      account.Name,
		Role:      string(account.Role),
		ParentID:  optionalText(account.ParentID),
		IsActive:  account.IsActive,
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	row, err := r.queries(tx).GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByCode retrieves an account by its chart code.
func (r *AccountRepository) GetByCode(ctx context.Context, tx usecase.Transaction, code string) (*domain.Account, error) {
	row, err := r.queries(tx).GetAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDs retrieves the accounts that exist among ids.
func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	rows, err := r.queries(tx).GetAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// List lists accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, tx usecase.Transaction, filter domain.AccountFilter) ([]*domain.Account, error) {
	params := generated.ListAccountsParams{
		ParentID: optionalText(filter.ParentID),
		IsActive: optionalBool(filter.IsActive),
	}
	if filter.Type != nil {
		params.Type = pgtype.Text{String: string(*filter.Type), Valid: true}
	}

	rows, err := r.queries(tx).ListAccounts(ctx, params)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:        row.ID,
		Code:      row.Code,
		Name:      row.Name,
		Type:      domain.AccountType(row.Type),
		Role:      domain.AccountRole(row.Role),
		ParentID:  textPtr(row.ParentID),
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}
