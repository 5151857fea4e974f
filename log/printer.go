package log

import (
	"go.uber.org/zap"
)

// ScriptPrinter receives console.log, console.warn and console.error from
// scripts and writes them to a zap logger. It satisfies the goja_nodejs
// console Printer interface.
type ScriptPrinter struct {
	logger *zap.Logger
}

// NewScriptPrinter returns a printer that tags every line with source=script.
func NewScriptPrinter(logger *zap.Logger) *ScriptPrinter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptPrinter{logger: logger.With(zap.String("source", "script"))}
}

func (p *ScriptPrinter) Log(s string) {
	p.logger.Info(s)
}

func (p *ScriptPrinter) Warn(s string) {
	p.logger.Warn(s)
}

// Error is script-level error output; it is not a host failure.
func (p *ScriptPrinter) Error(s string) {
	p.logger.Error(s)
}
