// Package lower implements pex's AST-to-IR lowering and closure-capture
// analysis: it walks a finished front-end AST (internal/ast) and produces
// an internal/ir.Module, resolving $$/$N source references and computing,
// for every function literal, the free-variable set captured from
// enclosing scopes.
//
// The capture algorithm follows a Local/Free distinction: a binding found
// in the current function is Local; a binding found in an enclosing
// function becomes a Free reference there and is chained through every
// intervening function so the code generator (internal/compiler) can
// later build each function's upvalue table by walking one enclosing
// scope at a time.
package lower

import (
	"fmt"

	"github.com/just-be-dev/pex-sub001/internal/ast"
	"github.com/just-be-dev/pex-sub001/internal/ir"
)

// funcCtx tracks one function's free-variable (capture) set while its body
// is being lowered.
type funcCtx struct {
	parent   *funcCtx
	captures []string
	capSet   map[string]bool
}

func newFuncCtx(parent *funcCtx) *funcCtx {
	return &funcCtx{parent: parent, capSet: map[string]bool{}}
}

func (fc *funcCtx) addCapture(name string) {
	if !fc.capSet[name] {
		fc.capSet[name] = true
		fc.captures = append(fc.captures, name)
	}
}

// binding is one entry of the persistent lexical environment: a name bound
// within the function identified by owner.
type binding struct {
	name  string
	owner *funcCtx
	next  *binding
}

func lookup(env *binding, name string) (*binding, bool) {
	for b := env; b != nil; b = b.next {
		if b.name == name {
			return b, true
		}
	}
	return nil, false
}

// resolveVar marks name as captured by every function context from cur
// up to, but not including, the function that actually binds it; unbound
// names are left alone and resolved as globals/builtins by the VM at
// LOAD_GLOBAL time.
func resolveVar(env *binding, cur *funcCtx, name string) {
	b, ok := lookup(env, name)
	if !ok {
		return
	}
	for fc := cur; fc != nil && fc != b.owner; fc = fc.parent {
		fc.addCapture(name)
	}
}

type state struct {
	fresh int
}

func (s *state) freshName(prefix string) string {
	s.fresh++
	return fmt.Sprintf("%%%s%d", prefix, s.fresh)
}

// Lower lowers a parsed file into an IR module whose body is evaluated with
// the implicit top-level `input` parameter bound ($$).
func Lower(f *ast.File) (*ir.Module, error) {
	s := &state{}
	top := newFuncCtx(nil)
	env := &binding{name: "input", owner: top}
	body, err := lowerSeq(f.Body, env, top, s)
	if err != nil {
		return nil, err
	}
	return &ir.Module{Body: body}, nil
}

// lowerSeq lowers a block of statements, honoring the Let/Fn "rest of block
// becomes the body" rule: a Let or Fn consumes everything
// syntactically following it via its own Rest field, so a plain slice of
// siblings is only ever encountered as the ordinary non-binding case.
func lowerSeq(nodes []ast.Node, env *binding, cur *funcCtx, s *state) (ir.Expr, error) {
	if len(nodes) == 0 {
		return &ir.Const{Value: ir.ConstNull{}}, nil
	}
	if len(nodes) == 1 {
		return lowerNode(nodes[0], env, cur, s)
	}
	exprs := make([]ir.Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := lowerNode(n, env, cur, s)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return &ir.Seq{Exprs: exprs}, nil
}

func lowerNode(n ast.Node, env *binding, cur *funcCtx, s *state) (ir.Expr, error) {
	switch n := n.(type) {
	case *ast.Literal:
		return lowerLiteral(n), nil

	case *ast.Ident:
		resolveVar(env, cur, n.Name)
		return &ir.Var{Name: n.Name}, nil

	case *ast.SourceRef:
		resolveVar(env, cur, "input")
		if n.Whole {
			return &ir.Var{Name: "input"}, nil
		}
		return &ir.Call{
			Callee: &ir.Var{Name: "get"},
			Args:   []ir.Expr{&ir.Var{Name: "input"}, &ir.Const{Value: ir.ConstNumber(n.Index)}},
		}, nil

	case *ast.If:
		cond, err := lowerNode(n.Cond, env, cur, s)
		if err != nil {
			return nil, err
		}
		then, err := lowerNode(n.Then, env, cur, s)
		if err != nil {
			return nil, err
		}
		var els ir.Expr = &ir.Const{Value: ir.ConstNull{}}
		if n.Else != nil {
			els, err = lowerNode(n.Else, env, cur, s)
			if err != nil {
				return nil, err
			}
		}
		return &ir.If{Cond: cond, Then: then, Else: els}, nil

	case *ast.And:
		a, err := lowerNode(n.Left, env, cur, s)
		if err != nil {
			return nil, err
		}
		tau := s.freshName("and")
		tauEnv := &binding{name: tau, owner: cur, next: env}
		b, err := lowerNode(n.Right, tauEnv, cur, s)
		if err != nil {
			return nil, err
		}
		return &ir.Let{
			Name:  tau,
			Value: a,
			Body:  &ir.If{Cond: &ir.Var{Name: tau}, Then: b, Else: &ir.Var{Name: tau}},
		}, nil

	case *ast.Or:
		a, err := lowerNode(n.Left, env, cur, s)
		if err != nil {
			return nil, err
		}
		tau := s.freshName("or")
		tauEnv := &binding{name: tau, owner: cur, next: env}
		b, err := lowerNode(n.Right, tauEnv, cur, s)
		if err != nil {
			return nil, err
		}
		return &ir.Let{
			Name:  tau,
			Value: a,
			Body:  &ir.If{Cond: &ir.Var{Name: tau}, Then: &ir.Var{Name: tau}, Else: b},
		}, nil

	case *ast.Let:
		value, err := lowerNode(n.Value, env, cur, s)
		if err != nil {
			return nil, err
		}
		restEnv := &binding{name: n.Name, owner: cur, next: env}
		var body ir.Expr
		if len(n.Rest) == 0 {
			body = &ir.Var{Name: n.Name}
		} else {
			body, err = lowerSeq(n.Rest, restEnv, cur, s)
			if err != nil {
				return nil, err
			}
		}
		return &ir.Let{Name: n.Name, Value: value, Body: body}, nil

	case *ast.Fn:
		fn, err := lowerFn(n.Name, n.Params, n.Body, env, cur, s)
		if err != nil {
			return nil, err
		}
		restEnv := &binding{name: n.Name, owner: cur, next: env}
		var body ir.Expr
		if len(n.Rest) == 0 {
			body = &ir.Var{Name: n.Name}
		} else {
			body, err = lowerSeq(n.Rest, restEnv, cur, s)
			if err != nil {
				return nil, err
			}
		}
		return &ir.Let{Name: n.Name, Value: fn, Body: body}, nil

	case *ast.Seq:
		return lowerSeq(n.Exprs, env, cur, s)

	case *ast.FnExpr:
		return lowerFn("", n.Params, n.Body, env, cur, s)

	case *ast.Call:
		callee, err := lowerNode(n.Callee, env, cur, s)
		if err != nil {
			return nil, err
		}
		args := make([]ir.Expr, 0, len(n.Args))
		for _, a := range n.Args {
			ae, err := lowerNode(a, env, cur, s)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &ir.Call{Callee: callee, Args: args}, nil

	case *ast.Effect:
		args := make([]ir.Expr, 0, len(n.Args))
		for _, a := range n.Args {
			ae, err := lowerNode(a, env, cur, s)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &ir.Effect{Name: n.Name, Args: args}, nil

	case *ast.Pipe:
		return nil, fmt.Errorf("lower: internal error: unresolved pipeline reached the lowerer (expected front end to desugar to nested calls)")

	default:
		return nil, fmt.Errorf("lower: unsupported node %T", n)
	}
}

// lowerFn lowers a function literal's own scope and returns the built
// ir.Fn, with the function's own name already bound in env (owner=cur) so
// that recursive self-reference inside body resolves through the same
// capture machinery as any other enclosing-scope reference.
func lowerFn(name string, params []string, body []ast.Node, env *binding, cur *funcCtx, s *state) (*ir.Fn, error) {
	child := newFuncCtx(cur)

	// Bind the function's own name (if any) before entering its body, so a
	// recursive call captures it like any other free variable.
	fnEnv := env
	if name != "" {
		fnEnv = &binding{name: name, owner: cur, next: env}
	}
	for _, p := range params {
		fnEnv = &binding{name: p, owner: child, next: fnEnv}
	}

	bodyExpr, err := lowerSeq(body, fnEnv, child, s)
	if err != nil {
		return nil, err
	}
	return &ir.Fn{
		Name:     name,
		Params:   append([]string(nil), params...),
		Body:     bodyExpr,
		Captures: child.captures,
	}, nil
}

func lowerLiteral(n *ast.Literal) *ir.Const {
	switch n.Kind {
	case ast.LitNull:
		return &ir.Const{Value: ir.ConstNull{}}
	case ast.LitBool:
		return &ir.Const{Value: ir.ConstBool(n.Bool)}
	case ast.LitNumber:
		return &ir.Const{Value: ir.ConstNumber(n.Num)}
	case ast.LitString:
		return &ir.Const{Value: ir.ConstString(n.Str)}
	case ast.LitRegex:
		return &ir.Const{Value: ir.ConstRegex{Pattern: n.Regex.Pattern, Flags: n.Regex.Flags}}
	default:
		return &ir.Const{Value: ir.ConstNull{}}
	}
}
