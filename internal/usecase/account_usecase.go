package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

// AccountUseCase handles chart-of-accounts business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	idGen       IDGenerator
	rec         recorder
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		idGen:       idGen,
		rec:         recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen, metrics: metrics},
		metrics:     metrics,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Code     string
	Name     string
	Type     domain.AccountType
	Role     domain.AccountRole
	ParentID *string
}

// CreateAccount creates a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := validateAccountInput(input.Code, input.Name, input.Type, input.Role); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if input.ParentID != nil {
		if _, err := uc.accountRepo.GetByID(txCtx, tx, *input.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Code:      strings.TrimSpace(input.Code),
		Name:      strings.TrimSpace(input.Name),
		Type:      input.Type,
		Role:      input.Role,
		ParentID:  input.ParentID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.createInTx(txCtx, tx, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	return account, nil
}

func (uc *AccountUseCase) createInTx(ctx context.Context, tx Transaction, account *domain.Account) error {
	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return err
	}

	err := uc.rec.event(ctx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated,
		domain.AccountChangedEvent{AccountID: account.ID, Code: account.Code, Type: string(account.Type)})
	if err != nil {
		return err
	}

	return uc.rec.audit(ctx, tx, domain.AuditActionAccountCreate, domain.ResourceTypeAccount, account.ID, nil, account)
}

// UpdateAccountInput is a partial update. Nil fields are left unchanged;
// an empty ParentID detaches the account from its parent.
type UpdateAccountInput struct {
	Code     *string
	Name     *string
	Type     *domain.AccountType
	Role     *domain.AccountRole
	ParentID *string
	IsActive *bool
}

// UpdateAccount applies a partial update. The code can never change.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, id string, input UpdateAccountInput) (*domain.Account, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByID(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	before := *account

	if input.Code != nil && strings.TrimSpace(*input.Code) != account.Code {
		return nil, domain.ErrAccountCodeImmutable
	}

	if input.Name != nil {
		if err := domain.ValidateAccountName(*input.Name); err != nil {
			return nil, err
		}
		account.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, domain.NewValidationError("type", "is not a valid account type")
		}
		account.Type = *input.Type
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, domain.NewValidationError("role", "is not a valid account role")
		}
		account.Role = *input.Role
	}
	if input.ParentID != nil {
		switch parentID := *input.ParentID; {
		case parentID == "":
			account.ParentID = nil
		case parentID == account.ID:
			return nil, domain.NewValidationError("parentId", "an account cannot be its own parent")
		default:
			if _, err := uc.accountRepo.GetByID(txCtx, tx, parentID); err != nil {
				return nil, err
			}
			account.ParentID = &parentID
		}
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	account.UpdatedAt = time.Now().UTC()

	if err := uc.accountRepo.Update(txCtx, tx, account); err != nil {
		return nil, err
	}

	err = uc.rec.event(txCtx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountUpdated,
		domain.AccountChangedEvent{AccountID: account.ID, Code: account.Code, Type: string(account.Type)})
	if err != nil {
		return nil, err
	}

	if err := uc.rec.audit(txCtx, tx, domain.AuditActionAccountUpdate, domain.ResourceTypeAccount, account.ID, before, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountOperations.WithLabelValues("update").Inc()
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, nil, id)
}

// ListAccounts lists accounts ordered by code.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	return uc.accountRepo.List(ctx, nil, filter)
}

// SeedResult reports what SeedDefaultChart did.
type SeedResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// SeedDefaultChart creates every default account whose code is not yet taken.
func (uc *AccountUseCase) SeedDefaultChart(ctx context.Context) (*SeedResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	result := &SeedResult{}
	now := time.Now().UTC()

	for _, def := range domain.DefaultChart {
		_, err := uc.accountRepo.GetByCode(txCtx, tx, def.Code)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}

		account := &domain.Account{
			ID:        uc.idGen.Generate(),
			Code:      def.Code,
			Name:      def.Name,
			Type:      def.Type,
			Role:      def.Role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uc.createInTx(txCtx, tx, account); err != nil {
			return nil, err
		}
		result.Created++
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Add(float64(result.Created))
	}

	return result, nil
}

func validateAccountInput(code, name string, accountType domain.AccountType, role domain.AccountRole) error {
	verr := &domain.ValidationError{}

	var fieldErr *domain.ValidationError
	if err := domain.ValidateAccountCode(code); errors.As(err, &fieldErr) {
		verr.Add("code", fieldErr.Fields["code"])
	}
	if err := domain.ValidateAccountName(name); errors.As(err, &fieldErr) {
		verr.Add("name", fieldErr.Fields["name"])
	}
	if !accountType.IsValid() {
		verr.Add("type", "is not a valid account type")
	}
	if !role.IsValid() {
		verr.Add("role", "is not a valid account role")
	}

	return verr.OrNil()
}
