package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicate is returned when a name is registered twice.
var ErrDuplicate = errors.New("command already registered")

// DefaultRegistry collects the commands packages register from init.
var DefaultRegistry = NewRegistry()

// Registry maps names to commands. It never dispatches; adapters look
// commands up and run them with their own Invocation data.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds c under c.Name().
func (r *Registry) Register(c Command) error {
	name := c.Name()
	if name == "" {
		return errors.New("command has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicate)
	}
	r.commands[name] = c
	return nil
}

// MustRegister is Register for init functions.
func (r *Registry) MustRegister(c Command) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// All lists the registered commands ordered by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return list
}
