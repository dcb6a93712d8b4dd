package quire

import (
	"github.com/dop251/goja_nodejs/console"
	"go.uber.org/zap"
)

// zapPrinter routes console output from evaluated modules to the
// runtime's structured logger.
type zapPrinter struct {
	logger *zap.Logger
}

var _ console.Printer = (*zapPrinter)(nil)

func newZapPrinter(logger *zap.Logger) console.Printer {
	return &zapPrinter{
		logger: logger.With(zap.String("origin", "module")),
	}
}

func (z *zapPrinter) Log(s string) {
	z.logger.Info(s)
}

func (z *zapPrinter) Warn(s string) {
	z.logger.Warn(s)
}

func (z *zapPrinter) Error(s string) {
	z.logger.Error(s)
}
