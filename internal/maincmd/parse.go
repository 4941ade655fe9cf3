package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/just-be-dev/pex-sub001/internal/ast"
	"github.com/just-be-dev/pex-sub001/internal/lexparse"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		f, err := parseFile(path, c.parseMode())
		if err != nil {
			printError(stdio, err)
			failed = true
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s:\n", path)
		fmt.Fprint(stdio.Stdout, ast.Print(f))
	}
	if failed {
		return fmt.Errorf("parse: failed")
	}
	return nil
}

func (c *Cmd) parseMode() lexparse.ParseMode {
	var mode lexparse.ParseMode
	if c.Shell {
		mode |= lexparse.ShellMode
	}
	return mode
}

func parseFile(path string, mode lexparse.ParseMode) (*ast.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := lexparse.Parse(string(src), mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
