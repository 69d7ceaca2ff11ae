package httpserver

import "io"

// Provider serves HTTP until closed.
type Provider interface {
	Start() error
	io.Closer
}

// Runner starts serving in the background.
type Runner interface {
	Run()
}

type RunableProvider interface {
	Provider
	Runner
}
