package history

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/dal"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

var logger = diag.CreateLogger()

const defaultRecentLimit = 5

// Statement is an account snapshot with its history and totals.
// Totals always cover the whole history, Transactions may not
type Statement struct {
	Account        *types.Account
	Transactions   []*types.Transaction
	TotalDeposited decimal.Decimal
	TotalWithdrawn decimal.Decimal

	// Truncated is set when older transactions were left out of Transactions
	Truncated bool
}

// Service is a read only view of the transaction log
type Service interface {
	// ListTransactions returns up to limit transactions, newest first
	ListTransactions(ctx context.Context, accountNo string, limit int) ([]*types.Transaction, error)

	// Recent returns latest transactions to show as a recent activity
	Recent(ctx context.Context, accountNo string) ([]*types.Transaction, error)

	Statement(ctx context.Context, accountNo string) (*Statement, error)
}

type service struct {
	storage     dal.Storage
	recentLimit int
}

func (svc *service) ListTransactions(ctx context.Context, accountNo string, limit int) ([]*types.Transaction, error) {
	ctx = diag.EnsureOperationID(ctx)
	logger.Debug(ctx, "Listing transactions of account %v, limit %v", accountNo, limit)
	return svc.storage.ListTransactions(ctx, accountNo, limit)
}

func (svc *service) Recent(ctx context.Context, accountNo string) ([]*types.Transaction, error) {
	return svc.ListTransactions(ctx, accountNo, svc.recentLimit)
}

func (svc *service) Statement(ctx context.Context, accountNo string) (*Statement, error) {
	ctx = diag.EnsureOperationID(ctx)
	dto, err := svc.storage.GetStatement(ctx, accountNo, 0)
	if err != nil {
		return nil, err
	}
	account := dto.Account
	statement := &Statement{
		Account:        &account,
		Transactions:   dto.Transactions,
		TotalDeposited: dto.TotalDeposited,
		TotalWithdrawn: dto.TotalWithdrawn,
		Truncated:      dto.TransactionsCount > len(dto.Transactions),
	}
	if statement.Truncated {
		logger.WithData(diag.MsgData{
			"accountNo": accountNo,
			"total":     dto.TransactionsCount,
			"listed":    len(dto.Transactions),
		}).Info(ctx, "Statement history truncated")
	}
	return statement, nil
}

// ServiceOpt is an option of the history service
type ServiceOpt func(*service)

// WithStorage will init the service with storage
func WithStorage(storage dal.Storage) ServiceOpt {
	return func(svc *service) {
		svc.storage = storage
	}
}

// WithRecentLimit sets number of transactions returned by Recent
func WithRecentLimit(limit int) ServiceOpt {
	return func(svc *service) {
		svc.recentLimit = limit
	}
}

// NewService returns an instance of a history service
func NewService(opts ...ServiceOpt) Service {
	svc := &service{recentLimit: defaultRecentLimit}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.recentLimit <= 0 {
		svc.recentLimit = defaultRecentLimit
	}
	return Service(svc)
}
