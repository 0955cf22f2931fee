package cmd

import "context"

// Unwrapper is implemented by decorated commands so adapters can reach the
// command underneath, e.g. to look for provider interfaces.
type Unwrapper interface {
	Command
	Unwrap() Command
}

type wrapped struct {
	inner Command
	run   func(ctx context.Context, inv *Invocation) error
}

func (w *wrapped) Name() string {
	return w.inner.Name()
}

func (w *wrapped) Description() string {
	return w.inner.Description()
}

func (w *wrapped) Run(ctx context.Context, inv *Invocation) error {
	return w.run(ctx, inv)
}

func (w *wrapped) Unwrap() Command {
	return w.inner
}

// Wrap returns c with its Run replaced by run. Name and Description still
// come from c, and Root can see through the wrapper.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	if run == nil {
		run = c.Run
	}
	return &wrapped{inner: c, run: run}
}

// Root peels every wrapper off c.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrapper)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}

// As finds the first layer of c, outermost first, that implements T.
func As[T any](c Command) (T, bool) {
	for {
		if t, ok := c.(T); ok {
			return t, true
		}
		u, ok := c.(Unwrapper)
		if !ok {
			var zero T
			return zero, false
		}
		c = u.Unwrap()
	}
}
