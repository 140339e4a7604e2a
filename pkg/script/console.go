package script

import (
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"

	"drawpanel/pkg/logx"
)

// consoleAPI implements console.log, console.warn, and console.error.
// log goes to the script's output; warnings and errors go to the logger.
type consoleAPI struct {
	out io.Writer
}

func (c *consoleAPI) register(vm *goja.Runtime) {
	console := vm.NewObject()
	console.Set("log", c.log)
	console.Set("warn", c.warn)
	console.Set("error", c.errorFn)
	vm.Set("console", console)
}

func (c *consoleAPI) log(call goja.FunctionCall) goja.Value {
	fmt.Fprintln(c.out, formatArgs(call.Arguments))
	return goja.Undefined()
}

func (c *consoleAPI) warn(call goja.FunctionCall) goja.Value {
	logx.Logger().Warn(formatArgs(call.Arguments), "source", "script")
	return goja.Undefined()
}

func (c *consoleAPI) errorFn(call goja.FunctionCall) goja.Value {
	logx.Logger().Error(formatArgs(call.Arguments), "source", "script")
	return goja.Undefined()
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
