// Package autoload configures the global logger from LOG_* environment
// variables as a side effect of being imported.
package autoload

import (
	configx "github.com/suthimate/offerlens/pkg/config"
	logx "github.com/suthimate/offerlens/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
