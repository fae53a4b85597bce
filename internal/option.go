package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logOut io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogWriter routes logs to w instead of stdout. The MCP command needs
// this: its stdout carries the protocol stream, so logs must go elsewhere.
// A configured log file still takes precedence.
func WithLogWriter(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
