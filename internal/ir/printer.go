package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders mod as an indented tree, one node per line: the maincmd
// "lower" command's debugging view of the lowerer's output, showing
// resolved captures the way the front end's AST cannot.
func Print(mod *Module) string {
	var sb strings.Builder
	printExpr(&sb, mod.Body, 0)
	return sb.String()
}

func printExpr(sb *strings.Builder, e Expr, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := e.(type) {
	case *Const:
		sb.WriteString(indent + constText(n.Value) + "\n")
	case *Var:
		fmt.Fprintf(sb, "%svar %s\n", indent, n.Name)
	case *If:
		sb.WriteString(indent + "if\n")
		printExpr(sb, n.Cond, depth+1)
		printExpr(sb, n.Then, depth+1)
		printExpr(sb, n.Else, depth+1)
	case *Let:
		fmt.Fprintf(sb, "%slet %s\n", indent, n.Name)
		printExpr(sb, n.Value, depth+1)
		printExpr(sb, n.Body, depth+1)
	case *Seq:
		sb.WriteString(indent + "seq\n")
		for _, c := range n.Exprs {
			printExpr(sb, c, depth+1)
		}
	case *Call:
		sb.WriteString(indent + "call\n")
		printExpr(sb, n.Callee, depth+1)
		for _, a := range n.Args {
			printExpr(sb, a, depth+1)
		}
	case *Fn:
		name := n.Name
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(sb, "%sfn %s(%s) captures=[%s]\n", indent, name, strings.Join(n.Params, ", "), strings.Join(n.Captures, ", "))
		printExpr(sb, n.Body, depth+1)
	case *Effect:
		fmt.Fprintf(sb, "%seffect %s\n", indent, n.Name)
		for _, a := range n.Args {
			printExpr(sb, a, depth+1)
		}
	default:
		fmt.Fprintf(sb, "%s<unknown %T>\n", indent, e)
	}
}

func constText(v ConstValue) string {
	switch c := v.(type) {
	case ConstNull:
		return "null"
	case ConstBool:
		return "bool " + strconv.FormatBool(bool(c))
	case ConstNumber:
		return "number " + strconv.FormatFloat(float64(c), 'g', -1, 64)
	case ConstString:
		return "string " + strconv.Quote(string(c))
	case ConstRegex:
		return fmt.Sprintf("regex /%s/%s", c.Pattern, c.Flags)
	default:
		return "const"
	}
}
