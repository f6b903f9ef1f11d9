package app

import (
	"database/sql"

	"go.uber.org/dig"

	"github.com/evgeny-myasishchev/bank-ledger/config"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/auth"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/dal"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/history"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/ledger"
)

// Injector is a function that will inject desired services
// to a target function
type Injector func(function interface{}) error

// BootstrapServices setup di container with all app services
func BootstrapServices(appCfg *config.AppConfig) Injector {
	c := dig.New()

	c.Provide(func() (*sql.DB, error) {
		return dal.OpenDB(appCfg.Storage.Driver.Value(), appCfg.Storage.DSN.Value())
	})

	c.Provide(func(db *sql.DB) (dal.Storage, error) {
		return dal.NewSQLStorage(
			dal.WithSQLDb(db),
			dal.WithDriver(appCfg.Storage.Driver.Value()),
			dal.WithCallTimeout(appCfg.Storage.CallTimeout.Value()),
			dal.WithListHardCap(appCfg.Storage.ListHardCap.Value()),
		)
	})

	c.Provide(func() auth.PasswordHasher {
		return auth.NewBcryptHasher(appCfg.Auth.BcryptCost.Value())
	})

	c.Provide(func(storage dal.Storage, hasher auth.PasswordHasher) auth.Service {
		return auth.NewService(
			auth.WithStorage(storage),
			auth.WithHasher(hasher),
		)
	})

	c.Provide(func(storage dal.Storage, hasher auth.PasswordHasher) ledger.Engine {
		return ledger.NewEngine(
			ledger.WithStorage(storage),
			ledger.WithHasher(hasher),
		)
	})

	c.Provide(func(storage dal.Storage) history.Service {
		return history.NewService(
			history.WithStorage(storage),
			history.WithRecentLimit(appCfg.Ledger.RecentLimit.Value()),
		)
	})

	return func(function interface{}) error {
		return c.Invoke(function)
	}
}
