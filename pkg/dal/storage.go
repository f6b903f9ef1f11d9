package dal

//go:generate mockgen -source=storage.go -destination=mock_storage.go -package=dal

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

// CredentialsDTO is an account together with its stored password hash
type CredentialsDTO struct {
	types.Account
	PasswordHash string
}

// StatementDTO is an account together with its history and totals,
// all read from the same snapshot
type StatementDTO struct {
	types.Account

	// Newest first, at most the requested limit
	Transactions []*types.Transaction

	// Number of all transactions of the account, may exceed len(Transactions)
	TransactionsCount int

	// Totals over all transactions of the account
	TotalDeposited decimal.Decimal
	TotalWithdrawn decimal.Decimal
}

// BalanceMutation is invoked by CommitBalanceAndTransaction with the locked,
// current state of the account. It returns the transaction to append.
// BalanceAfter of the returned transaction becomes the new balance.
// Returning an error aborts the commit, the error is returned to the caller as is
type BalanceMutation func(current *types.Account) (*types.Transaction, error)

// CredentialMutation is invoked by UpdateCredential with the locked, current
// credentials of the account. It returns the new password hash.
// Returning an error aborts the update, the error is returned to the caller as is
type CredentialMutation func(current *CredentialsDTO) (string, error)

// Storage is a persistance layer of the ledger.
// Every operation either fully succeeds or leaves the state unchanged
type Storage interface {
	Setup(ctx context.Context) error

	GetAccountByNo(ctx context.Context, accountNo string) (*types.Account, error)
	GetCredentialsByAccountNo(ctx context.Context, accountNo string) (*CredentialsDTO, error)
	CreateAccount(ctx context.Context, account *CredentialsDTO) error

	// CommitBalanceAndTransaction updates the balance and appends a transaction
	// as a single atomic unit, holding an exclusive lock of the account
	// for the whole read-modify-write
	CommitBalanceAndTransaction(ctx context.Context, accountNo string, mutate BalanceMutation) (*types.Account, *types.Transaction, error)

	// UpdateCredential replaces the password hash holding an exclusive lock
	// of the account for the whole read-modify-write
	UpdateCredential(ctx context.Context, accountNo string, mutate CredentialMutation) error

	// ListTransactions returns transactions newest first. Non positive limit
	// or limit above the hard cap is replaced with the hard cap
	ListTransactions(ctx context.Context, accountNo string, limit int) ([]*types.Transaction, error)

	// GetStatement returns the account, its latest transactions (limit is
	// clamped as for ListTransactions) and totals over the whole history
	GetStatement(ctx context.Context, accountNo string, limit int) (*StatementDTO, error)
}
