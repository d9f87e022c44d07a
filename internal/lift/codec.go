package lift

import (
	"encoding/json"
	"fmt"
	"io"
)

type wireExpr struct {
	Kind  string     `json:"kind"`
	Name  string     `json:"name,omitempty"`
	Value float64    `json:"value,omitempty"`
	Op    string     `json:"op,omitempty"`
	Args  []wireExpr `json:"args,omitempty"`
}

type wireFunction struct {
	Name    string     `json:"name"`
	Wrapper string     `json:"wrapper,omitempty"`
	Args    []string   `json:"args,omitempty"`
	Values  []wireExpr `json:"values"`
}

func toWire(e Expr) (wireExpr, error) {
	switch n := e.(type) {
	case Var:
		return wireExpr{Kind: "var", Name: n.Name}, nil
	case Const:
		return wireExpr{Kind: "const", Value: n.Value}, nil
	case *Binary:
		a, err := toWire(n.A)
		if err != nil {
			return wireExpr{}, err
		}
		b, err := toWire(n.B)
		if err != nil {
			return wireExpr{}, err
		}
		return wireExpr{Kind: "binary", Op: n.Op, Args: []wireExpr{a, b}}, nil
	case *Call:
		w := wireExpr{Kind: "call", Name: n.Name, Args: make([]wireExpr, len(n.Args))}
		for i, a := range n.Args {
			x, err := toWire(a)
			if err != nil {
				return wireExpr{}, err
			}
			w.Args[i] = x
		}
		return w, nil
	default:
		return wireExpr{}, fmt.Errorf("unsupported expression %T", e)
	}
}

func fromWire(w wireExpr) (Expr, error) {
	switch w.Kind {
	case "var":
		return Var{Name: w.Name}, nil
	case "const":
		return Const{Value: w.Value}, nil
	case "binary":
		if len(w.Args) != 2 {
			return nil, fmt.Errorf("binary %q needs 2 operands, got %d", w.Op, len(w.Args))
		}
		a, err := fromWire(w.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := fromWire(w.Args[1])
		if err != nil {
			return nil, err
		}
		return &Binary{Op: w.Op, A: a, B: b}, nil
	case "call":
		if w.Name == "" {
			return nil, fmt.Errorf("call without a name")
		}
		c := &Call{Name: w.Name, Args: make([]Expr, len(w.Args))}
		for i, a := range w.Args {
			x, err := fromWire(a)
			if err != nil {
				return nil, err
			}
			c.Args[i] = x
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown expression kind %q", w.Kind)
	}
}

func (f *Function) MarshalJSON() ([]byte, error) {
	w := wireFunction{Name: f.Name, Wrapper: f.Wrapper, Args: f.Args, Values: make([]wireExpr, len(f.Values))}
	for i, v := range f.Values {
		x, err := toWire(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		w.Values[i] = x
	}
	return json.Marshal(w)
}

func (f *Function) UnmarshalJSON(data []byte) error {
	var w wireFunction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	vals := make([]Expr, len(w.Values))
	for i, x := range w.Values {
		e, err := fromWire(x)
		if err != nil {
			return fmt.Errorf("%s: %w", w.Name, err)
		}
		vals[i] = e
	}
	*f = Function{Name: w.Name, Wrapper: w.Wrapper, Args: w.Args, Values: vals}
	return nil
}

// Decode reads a JSON object mapping names to functions. A function whose
// name field is empty takes its key.
func Decode(r io.Reader) (map[string]*Function, error) {
	var env map[string]*Function
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode functions: %w", err)
	}
	for k, f := range env {
		if f != nil && f.Name == "" {
			f.Name = k
		}
	}
	return env, nil
}

// Encode writes env as indented JSON.
func Encode(w io.Writer, env map[string]*Function) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
