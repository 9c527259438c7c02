// Package autoload initialises the global logger from LOG_* variables on import.
package autoload

import (
	"github.com/kelseyhightower/envconfig"
	configx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/config"
	logx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/logger"
)

func init() {
	// Flags are not parsed yet during init, so only ./.env is considered here.
	if err := configx.LoadEnvFile(""); err != nil {
		logx.Init()
		logx.Warn().Err(err).Msg("env file unreadable, logger uses defaults")
		return
	}

	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		logx.Warn().Err(err).Msg("logger config invalid, using defaults")
		return
	}
	logx.Init(conf)
}
