package config

import (
	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/config"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/version"
)

var appEnv = config.NewAppEnv(version.AppName)
var configBuilder = config.NewBuilder(appEnv)

var localParams = configBuilder.NewParamsBuilder(configBuilder.WithLocalSource())

// Do not change vars below at runtime
var (
	LogLevel = localParams.NewParam("log/logLevel").String()

	StorageDriver      = localParams.NewParam("storage/driver").String()
	StorageDSN         = localParams.NewParam("storage/data-source-name").String()
	StorageCallTimeout = localParams.NewParam("storage/call-timeout").Duration()
	StorageListHardCap = localParams.NewParam("storage/list-hard-cap").Int()

	AuthBcryptCost = localParams.NewParam("auth/bcrypt-cost").Int()

	LedgerRecentLimit = localParams.NewParam("ledger/recent-limit").Int()
)

// Log represents logger specific options
type Log struct {
	Level config.StringVal
}

// Storage represents storage settings
type Storage struct {
	Driver      config.StringVal
	DSN         config.StringVal
	CallTimeout config.DurationVal
	ListHardCap config.IntVal
}

// Auth represents credentials settings
type Auth struct {
	BcryptCost config.IntVal
}

// Ledger represents ledger views settings
type Ledger struct {
	RecentLimit config.IntVal
}

// AppConfig is a toplevel config structure
type AppConfig struct {
	Log     Log
	Storage Storage
	Auth    Auth
	Ledger  Ledger
}

// LoadAppConfig will load and initialize app config structure
func LoadAppConfig() (*AppConfig, error) {
	cfg, err := configBuilder.LoadConfig()
	if err != nil {
		return nil, err
	}

	appCfg := AppConfig{
		Log: Log{
			Level: cfg.StringParam(LogLevel),
		},
		Storage: Storage{
			Driver:      cfg.StringParam(StorageDriver),
			DSN:         cfg.StringParam(StorageDSN),
			CallTimeout: cfg.DurationParam(StorageCallTimeout),
			ListHardCap: cfg.IntParam(StorageListHardCap),
		},
		Auth: Auth{
			BcryptCost: cfg.IntParam(AuthBcryptCost),
		},
		Ledger: Ledger{
			RecentLimit: cfg.IntParam(LedgerRecentLimit),
		},
	}

	return &appCfg, nil
}
