package maincmd

import (
	"context"
	"fmt"

	"github.com/just-be-dev/pex-sub001/internal/compiler"
	"github.com/just-be-dev/pex-sub001/internal/container"
	"github.com/mna/mainer"
)

// Build compiles each source file through the full front-to-back pipeline
// (lexparse -> lower -> compiler) and writes the resulting bytecode
// container to stdout: binary by default, or the text assembly form
// (compiler.Dasm) with --asm. Multiple files are concatenated as
// independent containers, one per input.
func (c *Cmd) Build(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		mod, err := lowerFile(path, c.parseMode())
		if err != nil {
			printError(stdio, err)
			failed = true
			continue
		}
		file, err := compiler.Compile(mod)
		if err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			failed = true
			continue
		}
		if c.Asm {
			out, err := compiler.Dasm(file)
			if err != nil {
				printError(stdio, fmt.Errorf("%s: %w", path, err))
				failed = true
				continue
			}
			stdio.Stdout.Write(out)
			continue
		}
		out, err := container.Write(file)
		if err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			failed = true
			continue
		}
		stdio.Stdout.Write(out)
	}
	if failed {
		return fmt.Errorf("build: failed")
	}
	return nil
}
