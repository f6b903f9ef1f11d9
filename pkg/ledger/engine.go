package ledger

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/auth"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/dal"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

var logger = diag.CreateLogger()

// Engine is the only component that changes balances
type Engine interface {
	CreateAccount(
		ctx context.Context,
		name string,
		accountNo string,
		password string,
		accountType types.AccountType,
		initialBalance decimal.Decimal,
	) (*types.Account, error)

	// Deposit adds amount to the balance and records a Deposit transaction
	Deposit(ctx context.Context, account *types.Account, amount decimal.Decimal) (*types.Account, error)

	// Withdraw subtracts amount from the current stored balance and records
	// a Withdrawal transaction. Fails with types.ErrInsufficientFunds
	// leaving the account untouched if the balance is lower than amount
	Withdraw(ctx context.Context, account *types.Account, amount decimal.Decimal) (*types.Account, error)

	ChangePassword(ctx context.Context, account *types.Account, oldPassword string, newPassword string) error
}

type engine struct {
	storage dal.Storage
	hasher  auth.PasswordHasher
}

func (e *engine) CreateAccount(
	ctx context.Context,
	name string,
	accountNo string,
	password string,
	accountType types.AccountType,
	initialBalance decimal.Decimal,
) (*types.Account, error) {
	ctx = diag.EnsureOperationID(ctx)
	name = strings.TrimSpace(name)
	accountNo = strings.TrimSpace(accountNo)
	switch {
	case name == "":
		return nil, errors.Wrap(types.ErrInvalidAccount, "Name is required")
	case accountNo == "":
		return nil, errors.Wrap(types.ErrInvalidAccount, "Account number is required")
	case !accountType.Valid():
		return nil, errors.Wrapf(types.ErrInvalidAccount, "Unexpected account type %q", accountType)
	case initialBalance.IsNegative():
		return nil, errors.Wrap(types.ErrInvalidAccount, "Initial balance must not be negative")
	case !initialBalance.Equal(initialBalance.Truncate(types.AmountScale)):
		return nil, errors.Wrapf(types.ErrMalformedAmount, "Initial balance %v", initialBalance)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	account := types.Account{
		AccountNo: accountNo,
		Name:      name,
		Type:      accountType,
		Balance:   initialBalance,
	}
	if err := e.storage.CreateAccount(ctx, &dal.CredentialsDTO{
		Account:      account,
		PasswordHash: hash,
	}); err != nil {
		return nil, err
	}
	logger.WithData(diag.MsgData{
		"accountNo": accountNo,
		"type":      accountType,
	}).Info(ctx, "Account created")
	return &account, nil
}

func (e *engine) commit(
	ctx context.Context,
	account *types.Account,
	kind types.TransactionKind,
	amount decimal.Decimal,
) (*types.Account, error) {
	if account == nil {
		return nil, errors.Wrap(types.ErrInvalidAccount, "Account is required")
	}
	if err := types.ValidateAmount(amount); err != nil {
		return nil, err
	}
	delta, err := kind.Delta(amount)
	if err != nil {
		return nil, err
	}
	updated, trx, err := e.storage.CommitBalanceAndTransaction(ctx, account.AccountNo,
		func(current *types.Account) (*types.Transaction, error) {
			balanceAfter := current.Balance.Add(delta)
			if balanceAfter.IsNegative() {
				return nil, types.ErrInsufficientFunds
			}
			return &types.Transaction{
				AccountNo:    current.AccountNo,
				Kind:         kind,
				Amount:       amount,
				BalanceAfter: balanceAfter,
			}, nil
		})
	if err != nil {
		if errors.Is(err, types.ErrInsufficientFunds) {
			logger.WithData(diag.MsgData{
				"accountNo": account.AccountNo,
				"amount":    amount.StringFixed(types.AmountScale),
			}).Info(ctx, "%v rejected: insufficient funds", kind)
		}
		return nil, err
	}
	logger.WithData(diag.MsgData{
		"accountNo":     account.AccountNo,
		"transactionID": trx.ID,
		"amount":        amount.StringFixed(types.AmountScale),
		"balance":       updated.Balance.StringFixed(types.AmountScale),
	}).Info(ctx, "%v committed", kind)
	return updated, nil
}

func (e *engine) Deposit(ctx context.Context, account *types.Account, amount decimal.Decimal) (*types.Account, error) {
	return e.commit(diag.EnsureOperationID(ctx), account, types.TransactionKindDeposit, amount)
}

func (e *engine) Withdraw(ctx context.Context, account *types.Account, amount decimal.Decimal) (*types.Account, error) {
	return e.commit(diag.EnsureOperationID(ctx), account, types.TransactionKindWithdrawal, amount)
}

// ChangePassword verifies the old password and stores the new one while
// the account is locked, so of concurrent changes with the same old
// password only one succeeds
func (e *engine) ChangePassword(ctx context.Context, account *types.Account, oldPassword string, newPassword string) error {
	ctx = diag.EnsureOperationID(ctx)
	if account == nil {
		return errors.Wrap(types.ErrInvalidAccount, "Account is required")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return errors.WithMessage(err, "New password")
	}
	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	err = e.storage.UpdateCredential(ctx, account.AccountNo,
		func(current *dal.CredentialsDTO) (string, error) {
			if !e.hasher.Verify(current.PasswordHash, oldPassword) {
				return "", types.ErrAuthenticationFailed
			}
			return hash, nil
		})
	if err != nil {
		switch {
		case errors.Is(err, types.ErrAccountNotFound):
			logger.WithData(diag.MsgData{"reason": "accountNotFound"}).
				Info(ctx, "Password change of account %v rejected", account.AccountNo)
			return types.ErrAuthenticationFailed
		case errors.Is(err, types.ErrAuthenticationFailed):
			logger.WithData(diag.MsgData{"reason": "badCredential"}).
				Info(ctx, "Password change of account %v rejected", account.AccountNo)
			return types.ErrAuthenticationFailed
		}
		return err
	}
	logger.Info(ctx, "Password of account %v changed", account.AccountNo)
	return nil
}

// EngineOpt is an option of the ledger engine
type EngineOpt func(*engine)

// WithStorage will init the engine with storage
func WithStorage(storage dal.Storage) EngineOpt {
	return func(e *engine) {
		e.storage = storage
	}
}

// WithHasher will init the engine with password hasher
func WithHasher(hasher auth.PasswordHasher) EngineOpt {
	return func(e *engine) {
		e.hasher = hasher
	}
}

// NewEngine returns an instance of a ledger engine
func NewEngine(opts ...EngineOpt) Engine {
	e := &engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.hasher == nil {
		e.hasher = auth.NewBcryptHasher(0)
	}
	return Engine(e)
}
