package internal

import "github.com/starford/ansuz/internal/store"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	client store.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStoreClient overrides the remote store client, bypassing the XRPC
// dial. Used by tests.
func WithStoreClient(c store.Client) Option {
	return func(a *application) {
		a.client = c
	}
}
