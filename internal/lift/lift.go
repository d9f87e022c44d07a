package lift

// LiftCalls returns a copy of env in which every call to a function that has
// a wrapper is redirected to that wrapper. Calls made from inside the
// wrapper's own definition keep their target. The rewrite is one pass: a
// call redirected to a wrapper that is itself wrapped is not followed
// further. env is not modified.
func LiftCalls(env map[string]*Function) map[string]*Function {
	wrappers := make(map[string]string, len(env))
	for name, f := range env {
		if f != nil && f.Wrapper != "" {
			wrappers[name] = f.Wrapper
		}
	}
	out := make(map[string]*Function, len(env))
	for name, f := range env {
		if f == nil {
			out[name] = nil
			continue
		}
		nf := &Function{
			Name:    f.Name,
			Wrapper: f.Wrapper,
			Args:    append([]string(nil), f.Args...),
			Values:  make([]Expr, len(f.Values)),
		}
		for i, v := range f.Values {
			nf.Values[i] = rewrite(v, name, wrappers)
		}
		out[name] = nf
	}
	return out
}

// rewrite copies e, redirecting calls per wrappers unless caller is the
// wrapper being redirected to.
func rewrite(e Expr, caller string, wrappers map[string]string) Expr {
	switch n := e.(type) {
	case *Binary:
		return &Binary{Op: n.Op, A: rewrite(n.A, caller, wrappers), B: rewrite(n.B, caller, wrappers)}
	case *Call:
		c := &Call{Name: n.Name, Args: make([]Expr, len(n.Args))}
		for i, a := range n.Args {
			c.Args[i] = rewrite(a, caller, wrappers)
		}
		if w, ok := wrappers[n.Name]; ok && w != caller {
			c.Name = w
		}
		return c
	default:
		return e
	}
}
