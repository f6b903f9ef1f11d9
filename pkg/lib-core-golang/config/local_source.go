package config

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultConfigFile  = "default.json"
	envOverridesFile   = "custom-environment-variables.json"
	configPathSplitter = "/"
)

type localSource struct {
	dir                  string
	configFiles          []string
	envOverrides         map[string]interface{}
	defaultService       string
	ignoreDefaultService bool
}

// lookup walks a decoded json tree along a slash separated path.
// Returns nil if any node on the way is missing or is not an object
func lookup(tree interface{}, path string) interface{} {
	node := tree
	for _, part := range strings.Split(path, configPathSplitter) {
		obj, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		if node, ok = obj[part]; !ok {
			return nil
		}
	}
	return node
}

func readJSONFile(path string) (map[string]interface{}, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(buffer, &data); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse config file %v", path)
	}
	return data, nil
}

func (s *localSource) paramPath(p param) string {
	if p.service() == "" || (s.ignoreDefaultService && p.service() == s.defaultService) {
		return p.key()
	}
	return p.service() + configPathSplitter + p.key()
}

func (s *localSource) GetParameters(ctx context.Context, params []param) (map[param]interface{}, error) {
	values := map[param]interface{}{}

	for _, configFile := range s.configFiles {
		data, err := readJSONFile(filepath.Join(s.dir, configFile))
		if errors.Is(err, fs.ErrNotExist) && configFile != defaultConfigFile {
			logger.Debug(ctx, "Skipping missing config file %v", configFile)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to load config file %v", configFile)
		}
		for _, p := range params {
			if val := lookup(data, s.paramPath(p)); val != nil {
				values[p] = val
			}
		}
	}

	for _, p := range params {
		envName, ok := lookup(s.envOverrides, s.paramPath(p)).(string)
		if !ok {
			continue
		}
		if envVal := os.Getenv(envName); envVal != "" {
			values[p] = envVal
		}
	}

	return values, nil
}

// LocalOpt is an option of a local config source
type LocalOpt func(s *localSource)

// LocalOpts are options of a local source
var LocalOpts = struct {
	// WithDir option to set local dir to load config from
	WithDir func(dir string) LocalOpt

	// WithIgnoreDefaultService option to skip default service when building param path
	// so params for the default service will be resolved from a root of a config
	WithIgnoreDefaultService func() LocalOpt

	// WithAppEnv adds env and facet specific files
	WithAppEnv func(appEnv AppEnv) LocalOpt
}{
	WithDir: func(dir string) LocalOpt {
		return func(s *localSource) {
			s.dir = dir
		}
	},
	WithIgnoreDefaultService: func() LocalOpt {
		return func(s *localSource) {
			s.ignoreDefaultService = true
		}
	},
	WithAppEnv: func(appEnv AppEnv) LocalOpt {
		return func(s *localSource) {
			s.defaultService = appEnv.ServiceName
			if appEnv.Name == "" {
				return
			}
			s.configFiles = append(s.configFiles, appEnv.Name+".json")
			if appEnv.Facet != "" {
				s.configFiles = append(s.configFiles, appEnv.Name+"-"+appEnv.Facet+".json")
			}
		}
	},
}

func defaultConfigDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("Can not resolve config dir")
	}
	return filepath.Join(file, "..", "..", "..", "..", "config")
}

// NewLocalSource creates a source that reads params from a local fs.
// Files are applied in order: default.json, <env>.json, <env>-<facet>.json.
// Env variables declared in custom-environment-variables.json override file values
func NewLocalSource(opts ...LocalOpt) (Source, error) {
	source := &localSource{
		dir:         defaultConfigDir(),
		configFiles: []string{defaultConfigFile},
	}
	for _, opt := range opts {
		opt(source)
	}

	envOverrides, err := readJSONFile(filepath.Join(source.dir, envOverridesFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "Failed to load env overrides")
	}
	source.envOverrides = envOverrides
	return source, nil
}
