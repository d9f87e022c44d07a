// Package lift rewrites call sites in a small function IR so that calls to
// wrapped functions go to their wrappers instead.
package lift

// Expr is a node of the expression tree.
type Expr interface {
	expr()
}

// Var references a pure argument of the enclosing function.
type Var struct {
	Name string
}

// Const is a numeric literal.
type Const struct {
	Value float64
}

// Binary applies Op to A and B.
type Binary struct {
	Op   string
	A, B Expr
}

// Call calls another function by name.
type Call struct {
	Name string
	Args []Expr
}

func (Var) expr()     {}
func (Const) expr()   {}
func (*Binary) expr() {}
func (*Call) expr()   {}

// Function is a named pure definition. Wrapper, when set, names the
// function every other caller should go through instead.
type Function struct {
	Name    string
	Wrapper string
	Args    []string
	Values  []Expr
}

// Callees lists the names called from f, in first-use order.
func (f *Function) Callees() []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range f.Values {
		walk(v, func(c *Call) {
			if !seen[c.Name] {
				seen[c.Name] = true
				out = append(out, c.Name)
			}
		})
	}
	return out
}

func walk(e Expr, fn func(*Call)) {
	switch n := e.(type) {
	case *Binary:
		walk(n.A, fn)
		walk(n.B, fn)
	case *Call:
		fn(n)
		for _, a := range n.Args {
			walk(a, fn)
		}
	}
}
