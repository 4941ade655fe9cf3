package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders f as an indented, parenthesized tree, one node per line.
// It exists for the maincmd "parse" command — a debugging aid, not part
// of the language itself.
func Print(f *File) string {
	var sb strings.Builder
	for _, n := range f.Body {
		printNode(&sb, n, 0)
	}
	return sb.String()
}

func printNode(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *Literal:
		sb.WriteString(indent + literalText(n) + "\n")
	case *Ident:
		fmt.Fprintf(sb, "%sident %s\n", indent, n.Name)
	case *SourceRef:
		if n.Whole {
			sb.WriteString(indent + "$$\n")
		} else {
			fmt.Fprintf(sb, "%s$%d\n", indent, n.Index)
		}
	case *If:
		sb.WriteString(indent + "if\n")
		printNode(sb, n.Cond, depth+1)
		printNode(sb, n.Then, depth+1)
		if n.Else != nil {
			printNode(sb, n.Else, depth+1)
		}
	case *And:
		sb.WriteString(indent + "and\n")
		printNode(sb, n.Left, depth+1)
		printNode(sb, n.Right, depth+1)
	case *Or:
		sb.WriteString(indent + "or\n")
		printNode(sb, n.Left, depth+1)
		printNode(sb, n.Right, depth+1)
	case *Let:
		fmt.Fprintf(sb, "%slet %s\n", indent, n.Name)
		printNode(sb, n.Value, depth+1)
		for _, r := range n.Rest {
			printNode(sb, r, depth)
		}
	case *Fn:
		fmt.Fprintf(sb, "%sfn %s(%s)\n", indent, n.Name, strings.Join(n.Params, ", "))
		for _, b := range n.Body {
			printNode(sb, b, depth+1)
		}
		for _, r := range n.Rest {
			printNode(sb, r, depth)
		}
	case *FnExpr:
		fmt.Fprintf(sb, "%sfn(%s)\n", indent, strings.Join(n.Params, ", "))
		for _, b := range n.Body {
			printNode(sb, b, depth+1)
		}
	case *Seq:
		sb.WriteString(indent + "seq\n")
		for _, e := range n.Exprs {
			printNode(sb, e, depth+1)
		}
	case *Call:
		sb.WriteString(indent + "call\n")
		printNode(sb, n.Callee, depth+1)
		for _, a := range n.Args {
			printNode(sb, a, depth+1)
		}
	case *Pipe:
		sb.WriteString(indent + "pipe\n")
		for _, s := range n.Stages {
			printNode(sb, s, depth+1)
		}
	case *Effect:
		fmt.Fprintf(sb, "%seffect %s\n", indent, n.Name)
		for _, a := range n.Args {
			printNode(sb, a, depth+1)
		}
	case *PipeSlot:
		sb.WriteString(indent + "$\n")
	default:
		fmt.Fprintf(sb, "%s<unknown %T>\n", indent, n)
	}
}

func literalText(n *Literal) string {
	switch n.Kind {
	case LitNull:
		return "null"
	case LitBool:
		return "bool " + strconv.FormatBool(n.Bool)
	case LitNumber:
		return "number " + strconv.FormatFloat(n.Num, 'g', -1, 64)
	case LitString:
		return "string " + strconv.Quote(n.Str)
	case LitRegex:
		return fmt.Sprintf("regex /%s/%s", n.Regex.Pattern, n.Regex.Flags)
	default:
		return "literal"
	}
}
