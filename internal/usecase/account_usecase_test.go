package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/internal/usecase/mocks"
)

func expectTx(ctrl *gomock.Controller, txManager *mocks.MockTransactionManager, commit bool) *mocks.MockTransaction {
	tx := mocks.NewMockTransaction(ctrl)
	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	if commit {
		tx.EXPECT().Commit(gomock.Any()).Return(nil)
	}
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
	return tx
}

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.CreateAccountInput
		setupMocks  func(*gomock.Controller, *mocks.MockTransactionManager, *mocks.MockAccountRepository, *mocks.MockAuditRepository)
		expectedErr error
	}{
		{
			name: "successful account creation",
			input: usecase.CreateAccountInput{
				Code: "1000",
				Name: "Cash",
				Type: domain.AccountTypeAsset,
				Role: domain.AccountRoleCash,
			},
			setupMocks: func(ctrl *gomock.Controller, txm *mocks.MockTransactionManager, repo *mocks.MockAccountRepository, audit *mocks.MockAuditRepository) {
				tx := expectTx(ctrl, txm, true)
				repo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
					func(_ context.Context, _ usecase.Transaction, a *domain.Account) error {
						if !a.IsActive || a.ID != "acc-1" {
							t.Errorf("unexpected account %+v", a)
						}
						return nil
					})
				audit.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
					func(_ context.Context, _ usecase.Transaction, log *domain.AuditLog) error {
						if log.Action != string(domain.AuditActionAccountCreate) || log.ResourceID != "acc-1" {
							t.Errorf("unexpected audit log %+v", log)
						}
						return nil
					})
			},
		},
		{
			name: "invalid input never opens a transaction",
			input: usecase.CreateAccountInput{
				Code: "10 00",
				Name: "",
				Type: "BOGUS",
			},
			setupMocks:  func(*gomock.Controller, *mocks.MockTransactionManager, *mocks.MockAccountRepository, *mocks.MockAuditRepository) {},
			expectedErr: domain.ErrValidation,
		},
		{
			name: "duplicate code",
			input: usecase.CreateAccountInput{
				Code: "1000",
				Name: "Cash",
				Type: domain.AccountTypeAsset,
			},
			setupMocks: func(ctrl *gomock.Controller, txm *mocks.MockTransactionManager, repo *mocks.MockAccountRepository, _ *mocks.MockAuditRepository) {
				expectTx(ctrl, txm, false)
				repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ErrDuplicateAccountCode)
			},
			expectedErr: domain.ErrDuplicateAccountCode,
		},
		{
			name: "missing parent",
			input: usecase.CreateAccountInput{
				Code:     "1010",
				Name:     "Petty Cash",
				Type:     domain.AccountTypeAsset,
				ParentID: ptr("missing"),
			},
			setupMocks: func(ctrl *gomock.Controller, txm *mocks.MockTransactionManager, repo *mocks.MockAccountRepository, _ *mocks.MockAuditRepository) {
				expectTx(ctrl, txm, false)
				repo.EXPECT().GetByID(gomock.Any(), gomock.Any(), "missing").Return(nil, domain.ErrAccountNotFound)
			},
			expectedErr: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			txm := mocks.NewMockTransactionManager(ctrl)
			repo := mocks.NewMockAccountRepository(ctrl)
			audit := mocks.NewMockAuditRepository(ctrl)
			idGen := mocks.NewMockIDGenerator(ctrl)
			idGen.EXPECT().Generate().Return("acc-1").AnyTimes()
			tt.setupMocks(ctrl, txm, repo, audit)

			uc := usecase.NewAccountUseCase(txm, repo, nil, audit, idGen, nil)
			account, err := uc.CreateAccount(context.Background(), tt.input)

			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.Code != tt.input.Code || account.Name != tt.input.Name {
				t.Fatalf("unexpected account %+v", account)
			}
		})
	}
}

func TestAccountUseCase_CreateAccount_ReportsEveryInvalidField(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := usecase.NewAccountUseCase(mocks.NewMockTransactionManager(ctrl), mocks.NewMockAccountRepository(ctrl), nil, nil, mocks.NewMockIDGenerator(ctrl), nil)

	_, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Code: "", Name: "", Type: "NOPE", Role: "NOPE"})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"code", "name", "type", "role"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %q in %v", field, verr.Fields)
		}
	}
}

func TestAccountUseCase_UpdateAccount(t *testing.T) {
	existing := func() *domain.Account {
		return &domain.Account{ID: "acc-1", Code: "1000", Name: "Cash", Type: domain.AccountTypeAsset, IsActive: true}
	}

	tests := []struct {
		name        string
		input       usecase.UpdateAccountInput
		setupMocks  func(*mocks.MockAccountRepository)
		commit      bool
		expectedErr error
		check       func(*testing.T, *domain.Account)
	}{
		{
			name:  "rename and deactivate",
			input: usecase.UpdateAccountInput{Name: ptr("Operating Cash"), IsActive: ptr(false)},
			setupMocks: func(repo *mocks.MockAccountRepository) {
				repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			commit: true,
			check: func(t *testing.T, a *domain.Account) {
				if a.Name != "Operating Cash" || a.IsActive {
					t.Fatalf("unexpected account %+v", a)
				}
			},
		},
		{
			name:        "code change rejected",
			input:       usecase.UpdateAccountInput{Code: ptr("1001")},
			setupMocks:  func(*mocks.MockAccountRepository) {},
			expectedErr: domain.ErrAccountCodeImmutable,
		},
		{
			name:       "same code accepted",
			input:      usecase.UpdateAccountInput{Code: ptr("1000")},
			setupMocks: func(repo *mocks.MockAccountRepository) { repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil) },
			commit:     true,
		},
		{
			name:        "self parent rejected",
			input:       usecase.UpdateAccountInput{ParentID: ptr("acc-1")},
			setupMocks:  func(*mocks.MockAccountRepository) {},
			expectedErr: domain.ErrValidation,
		},
		{
			name:  "empty parent detaches",
			input: usecase.UpdateAccountInput{ParentID: ptr("")},
			setupMocks: func(repo *mocks.MockAccountRepository) {
				repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			commit: true,
			check: func(t *testing.T, a *domain.Account) {
				if a.ParentID != nil {
					t.Fatalf("expected parent cleared, got %v", *a.ParentID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			txm := mocks.NewMockTransactionManager(ctrl)
			repo := mocks.NewMockAccountRepository(ctrl)
			idGen := mocks.NewMockIDGenerator(ctrl)
			idGen.EXPECT().Generate().Return("id").AnyTimes()

			expectTx(ctrl, txm, tt.commit)
			repo.EXPECT().GetByID(gomock.Any(), gomock.Any(), "acc-1").Return(existing(), nil)
			tt.setupMocks(repo)

			uc := usecase.NewAccountUseCase(txm, repo, nil, nil, idGen, nil)
			account, err := uc.UpdateAccount(context.Background(), "acc-1", tt.input)

			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, account)
			}
		})
	}
}

func TestAccountUseCase_SeedDefaultChart(t *testing.T) {
	ctrl := gomock.NewController(t)
	txm := mocks.NewMockTransactionManager(ctrl)
	repo := mocks.NewMockAccountRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)
	idGen.EXPECT().Generate().Return("id").AnyTimes()

	expectTx(ctrl, txm, true)
	repo.EXPECT().GetByCode(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, code string) (*domain.Account, error) {
			if code == domain.CodeCash {
				return &domain.Account{ID: "existing", Code: code}, nil
			}
			return nil, domain.ErrAccountNotFound
		}).Times(len(domain.DefaultChart))
	repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(len(domain.DefaultChart) - 1)

	uc := usecase.NewAccountUseCase(txm, repo, nil, nil, idGen, nil)
	result, err := uc.SeedDefaultChart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != 1 || result.Created != len(domain.DefaultChart)-1 {
		t.Fatalf("unexpected seed result %+v", result)
	}
}

func ptr[T any](v T) *T {
	return &v
}
