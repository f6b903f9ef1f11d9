package config

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/diag"
)

const (
	appEnvVar = "APP_ENV"

	facetVar = "APP_ENV_FACET"
)

var logger = diag.CreateLogger()

// AppEnv represents app env
type AppEnv struct {
	// ServiceName is a name of a current service
	ServiceName string

	// Name is a env name. By default taken from APP_ENV. Corresponds to NODE_ENV
	Name string

	// Facet is a env facet like preprod (for production). By default taken from APP_ENV_FACET
	Facet string
}

type appEnvCfg struct {
	lookupFlag func(name string) *flag.Flag
}

type appEnvOpt func(*appEnvCfg)

func withLookupFlag(lookupFlag func(name string) *flag.Flag) appEnvOpt {
	return func(cfg *appEnvCfg) {
		cfg.lookupFlag = lookupFlag
	}
}

// NewAppEnv creates a new instance of the app env from os env
// Will use "dev" by default and "test" when running tests
func NewAppEnv(serviceName string, opts ...appEnvOpt) AppEnv {
	cfg := appEnvCfg{
		lookupFlag: flag.Lookup,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	appEnv := os.Getenv(appEnvVar)
	if appEnv == "" {
		if v := cfg.lookupFlag("test.v"); v == nil {
			appEnv = "dev"
		} else {
			appEnv = "test"
		}
	}
	return AppEnv{
		Name:        appEnv,
		Facet:       os.Getenv(facetVar),
		ServiceName: serviceName,
	}
}

// Source is an abstraction to read params
type Source interface {
	GetParameters(ctx context.Context, params []param) (map[param]interface{}, error)
}

// ServiceConfig gives access to loaded param values
type ServiceConfig interface {
	StringParam(p StringParam) StringVal
	IntParam(p IntParam) IntVal
	BoolParam(p BoolParam) BoolVal
	DurationParam(p DurationParam) DurationVal
}

type serviceConfig struct {
	values map[param]paramValue
}

func (c *serviceConfig) value(p param) paramValue {
	val, ok := c.values[p]
	if !ok {
		panic(fmt.Sprintf("Unknown parameter: %v", p))
	}
	return val
}

func (c *serviceConfig) StringParam(p StringParam) StringVal {
	return c.value(p).(StringVal)
}

func (c *serviceConfig) IntParam(p IntParam) IntVal {
	return c.value(p).(IntVal)
}

func (c *serviceConfig) BoolParam(p BoolParam) BoolVal {
	return c.value(p).(BoolVal)
}

func (c *serviceConfig) DurationParam(p DurationParam) DurationVal {
	return c.value(p).(DurationVal)
}

type sourceBinding struct {
	params []param
	source Source
}

type loadCfg struct {
	ctx      context.Context
	bindings []sourceBinding
}

// ServiceConfigOpt is an option of Load
type ServiceConfigOpt func(cfg *loadCfg)

// WithSource binds params to the source they should be loaded from
func WithSource(binding sourceBinding) ServiceConfigOpt {
	return func(cfg *loadCfg) {
		cfg.bindings = append(cfg.bindings, binding)
	}
}

// WithContext sets a context that will be passed to sources
func WithContext(ctx context.Context) ServiceConfigOpt {
	return func(cfg *loadCfg) {
		cfg.ctx = ctx
	}
}

// Load fetches values of all bound params from their sources.
// Fails if any param is missing or has unexpected type
func Load(opts ...ServiceConfigOpt) (ServiceConfig, error) {
	cfg := loadCfg{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ctx == nil {
		cfg.ctx = diag.EnsureOperationID(context.Background())
	}
	ctx := cfg.ctx

	logger.Info(ctx, "Loading config values")
	result := &serviceConfig{values: map[param]paramValue{}}
	for _, binding := range cfg.bindings {
		values, err := binding.source.GetParameters(ctx, binding.params)
		if err != nil {
			return nil, err
		}
		logger.Debug(ctx, "Fetched %v (of %v requested) values", len(values), len(binding.params))
		for _, p := range binding.params {
			rawValue, ok := values[p]
			if !ok {
				return nil, errors.Errorf("Parameter %v not found", p)
			}
			value := p.emptyValue()
			if err := value.setValue(rawValue); err != nil {
				return nil, errors.Wrapf(err, "Failed to set value for parameter %v", p)
			}
			result.values[p] = value
		}
	}
	return result, nil
}
