// Package jsrun executes bundle artifacts in an embedded JavaScript engine.
package jsrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"
)

// ErrInterrupted is returned when the context ends while the script runs.
var ErrInterrupted = errors.New("script interrupted")

// Run executes src as a classic script. console.log and console.info write
// to stdout; console.warn and console.error write to stderr. Arguments are
// joined with single spaces, one line per call.
func Run(ctx context.Context, src string, stdout, stderr io.Writer) error {
	vm := goja.New()

	console := vm.NewObject()

	for name, w := range map[string]io.Writer{
		"log":   stdout,
		"info":  stdout,
		"warn":  stderr,
		"error": stderr,
	} {
		err := console.Set(name, printer(w))
		if err != nil {
			return fmt.Errorf("install console.%s: %w", name, err)
		}
	}

	err := vm.Set("console", console)
	if err != nil {
		return fmt.Errorf("install console: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ErrInterrupted)
	})
	defer stop()

	_, err = vm.RunString(src)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
		}

		return fmt.Errorf("run script: %w", err)
	}

	return nil
}

// Capture runs src and returns everything console.log printed, one entry
// per call.
func Capture(ctx context.Context, src string) ([]string, error) {
	var out strings.Builder

	err := Run(ctx, src, &out, io.Discard)

	text := strings.TrimSuffix(out.String(), "\n")
	if text == "" {
		return nil, err
	}

	return strings.Split(text, "\n"), err
}

func printer(w io.Writer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}

		fmt.Fprintln(w, strings.Join(parts, " "))

		return goja.Undefined()
	}
}
