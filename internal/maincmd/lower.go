package maincmd

import (
	"context"
	"fmt"

	"github.com/just-be-dev/pex-sub001/internal/ir"
	"github.com/just-be-dev/pex-sub001/internal/lexparse"
	"github.com/just-be-dev/pex-sub001/internal/lower"
	"github.com/mna/mainer"
)

// Lower prints the lowered intermediate form. pex has no separate
// symbol-resolution pass over the AST: internal/lower resolves names and
// captures as it lowers straight to IR, so this is the closest analogue to
// "parse with resolution information" in this pipeline.
func (c *Cmd) Lower(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		mod, err := lowerFile(path, c.parseMode())
		if err != nil {
			printError(stdio, err)
			failed = true
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s:\n", path)
		fmt.Fprint(stdio.Stdout, ir.Print(mod))
	}
	if failed {
		return fmt.Errorf("lower: failed")
	}
	return nil
}

func lowerFile(path string, mode lexparse.ParseMode) (*ir.Module, error) {
	f, err := parseFile(path, mode)
	if err != nil {
		return nil, err
	}
	mod, err := lower.Lower(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}
