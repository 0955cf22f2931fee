package cmd

// Middleware decorates a command, typically by wrapping its Run with Wrap.
type Middleware func(Command) Command

// Apply wraps c with mws. The first middleware ends up outermost and sees the
// invocation first.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// Chain folds several middlewares into one, keeping the Apply order.
func Chain(mws ...Middleware) Middleware {
	return func(c Command) Command {
		return Apply(c, mws...)
	}
}
