package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/just-be-dev/pex-sub001/internal/lexparse"
	"github.com/mna/mainer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		if err := tokenizeFile(stdio, path); err != nil {
			printError(stdio, err)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("tokenize: failed")
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lx := lexparse.NewLexer(string(src))
	for {
		tok, err := lx.Next()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(stdio.Stdout, "%s: %s", path, tokenText(tok))
		fmt.Fprintln(stdio.Stdout)
		if tok.Kind == lexparse.TEOF {
			break
		}
	}
	return nil
}

func tokenText(tok lexparse.Token) string {
	switch tok.Kind {
	case lexparse.TNumber:
		return fmt.Sprintf("number %g", tok.Num)
	case lexparse.TString:
		return fmt.Sprintf("string %q", tok.Str)
	case lexparse.TRegex:
		return fmt.Sprintf("regex /%s/%s", tok.Text, tok.Str)
	case lexparse.TIdent:
		return "ident " + tok.Text
	case lexparse.TIdentColon:
		return "ident: " + tok.Text
	case lexparse.TDollarDollar:
		return "$$"
	case lexparse.TDollarNum:
		return fmt.Sprintf("$%g", tok.Num)
	case lexparse.TDollar:
		return "$"
	case lexparse.TLParen:
		return "("
	case lexparse.TRParen:
		return ")"
	case lexparse.TPipe:
		return "|"
	case lexparse.TSemi:
		return ";"
	case lexparse.TEOF:
		return "eof"
	default:
		return "?"
	}
}
