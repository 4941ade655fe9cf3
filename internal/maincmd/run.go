package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/just-be-dev/pex-sub001/internal/builtins"
	"github.com/just-be-dev/pex-sub001/internal/compiler"
	"github.com/just-be-dev/pex-sub001/internal/container"
	"github.com/just-be-dev/pex-sub001/internal/lexparse"
	"github.com/just-be-dev/pex-sub001/internal/lower"
	"github.com/just-be-dev/pex-sub001/internal/value"
	"github.com/just-be-dev/pex-sub001/internal/vm"
	"github.com/mna/mainer"
)

// Run executes args[0] (source by default, an already-built bytecode
// container with --bytecode) and prints the resulting value. args[1], if
// present, is a pex expression evaluated (with its own input bound to
// null) to produce the program's input value; omitted, input defaults to
// null, matching $$'s top-level binding.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]

	file, err := c.loadFile(path)
	if err != nil {
		printError(stdio, err)
		return err
	}

	input := value.Value(value.NullValue)
	if len(args) > 1 {
		input, err = evalLiteral(args[1], c.parseMode())
		if err != nil {
			printError(stdio, err)
			return err
		}
	}

	globals := builtins.Globals()
	handler := vm.DefaultEffectHandler{W: stdio.Stdout}
	machine := vm.New(file, globals, handler)

	result, err := machine.Run(input)
	if err != nil {
		printError(stdio, err)
		return err
	}
	fmt.Fprintln(stdio.Stdout, value.ToDisplayString(result))
	return nil
}

func (c *Cmd) loadFile(path string) (*container.File, error) {
	if c.Bytecode {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		file, err := container.Read(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return file, nil
	}
	mod, err := lowerFile(path, c.parseMode())
	if err != nil {
		return nil, err
	}
	file, err := compiler.Compile(mod)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// evalLiteral compiles src as a standalone program and runs it with a null
// input, letting the run command accept any pex expression (not just bare
// literals) as the input argument that follows the program path.
func evalLiteral(src string, mode lexparse.ParseMode) (value.Value, error) {
	f, err := lexparse.Parse(src, mode&^lexparse.ShellMode)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	mod, err := lower.Lower(f)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	file, err := compiler.Compile(mod)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	machine := vm.New(file, builtins.Globals(), vm.EffectHandlerFunc(func(name string, args []value.Value, resume vm.Resume) (value.Value, error) {
		return nil, fmt.Errorf("input expression may not use effects (got %q)", name)
	}))
	return machine.Run(value.NullValue)
}
