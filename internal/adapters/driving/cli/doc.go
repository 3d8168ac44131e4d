// Package cli implements the cobra command-line interface.
// Commands call the driving port services; wiring of the concrete
// adapters happens once in Execute.
package cli
