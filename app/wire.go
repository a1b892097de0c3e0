//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
