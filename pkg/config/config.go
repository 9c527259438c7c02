package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

var (
	envFilePath string
	parseOnce   sync.Once

	loadMu     sync.Mutex
	loadedEnvs = map[string]bool{}
)

// MustNew is New that panics on error. Intended for main().
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads the env file selected by -env (or ./.env when present) into the
// process environment once, then decodes variables under prefix into T.
func New[T any](prefix string) (*T, error) {
	if err := LoadEnvFile(resolveEnvPath()); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process %s config: %w", describePrefix(prefix), err)
	}
	return &conf, nil
}

// LoadEnvFile exports every key in path as an upper-cased environment
// variable. Variables already set in the environment win. An empty path
// falls back to ./.env and is a no-op when that file is absent.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	loadMu.Lock()
	defer loadMu.Unlock()
	if loadedEnvs[path] {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			loadedEnvs[path] = true
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("failed to load env file: %s is a directory", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	loadedEnvs[path] = true
	return nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func describePrefix(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return "root"
	}
	return prefix
}
