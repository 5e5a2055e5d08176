// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/statext/pkg/api"    //nolint:depguard
	"github.com/ssargent/statext/pkg/ledger" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	ledgerFactory ledger.Factory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		ledgerFactory: ledger.DefaultFactory{},
		serverFactory: api.NewServerFactory(),
	}
}

// GetLedgerFactory returns the ledger factory
func (c *Container) GetLedgerFactory() ledger.Factory {
	return c.ledgerFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetLedgerFactory allows overriding the ledger factory (for testing)
func (c *Container) SetLedgerFactory(factory ledger.Factory) {
	c.ledgerFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
