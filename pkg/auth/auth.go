package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/dal"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

var logger = diag.CreateLogger()

// Service is an auth service abstraction
type Service interface {
	// Login returns the account if the password matches. Unknown account
	// and wrong password both fail with types.ErrAuthenticationFailed
	Login(ctx context.Context, accountNo string, password string) (*types.Account, error)
}

type service struct {
	storage dal.Storage
	hasher  PasswordHasher
}

func (svc *service) Login(ctx context.Context, accountNo string, password string) (*types.Account, error) {
	ctx = diag.EnsureOperationID(ctx)
	logger.Debug(ctx, "Authenticating account %v", accountNo)
	credentials, err := svc.storage.GetCredentialsByAccountNo(ctx, accountNo)
	if err != nil {
		if errors.Is(err, types.ErrAccountNotFound) {
			svc.hasher.Verify(dummyHashOf(svc.hasher), password)
			logger.WithData(diag.MsgData{"reason": "accountNotFound"}).
				Info(ctx, "Authentication of account %v failed", accountNo)
			return nil, types.ErrAuthenticationFailed
		}
		return nil, errors.Wrap(err, "Failed to load credentials")
	}
	if !svc.hasher.Verify(credentials.PasswordHash, password) {
		logger.WithData(diag.MsgData{"reason": "badCredential"}).
			Info(ctx, "Authentication of account %v failed", accountNo)
		return nil, types.ErrAuthenticationFailed
	}
	account := credentials.Account
	return &account, nil
}

// ServiceOpt is an option for auth service
type ServiceOpt func(*service)

// WithStorage will init the service with storage
func WithStorage(storage dal.Storage) ServiceOpt {
	return func(svc *service) {
		svc.storage = storage
	}
}

// WithHasher will init the service with password hasher
func WithHasher(hasher PasswordHasher) ServiceOpt {
	return func(svc *service) {
		svc.hasher = hasher
	}
}

// NewService returns an instance of an auth service
func NewService(opts ...ServiceOpt) Service {
	svc := &service{}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.hasher == nil {
		svc.hasher = NewBcryptHasher(0)
	}
	return Service(svc)
}
