// Package cmd is the transport-neutral command core. A Command has a name, a
// description and a Run method; adapters (Discord interactions, the CLI)
// decide how commands are declared and what lands in Invocation.Data.
package cmd

import "context"

// Invocation is one call of a command. Data is owned by the adapter that
// dispatched it, e.g. a Discord interaction context.
type Invocation struct {
	Args []string
	Data any
}

// Command is implemented by everything the registry can hold.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Arg returns the i-th argument, or "" when there are fewer.
func (inv *Invocation) Arg(i int) string {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}
