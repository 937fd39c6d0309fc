// Package builtin lists every module shipped with lintx.
package builtin

import (
	"github.com/danmuck/lintx/internal/consumer/monitor"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/record"
	"github.com/danmuck/lintx/internal/source/adc"
	"github.com/danmuck/lintx/internal/source/crsfrcin"
	"github.com/danmuck/lintx/internal/source/mock"
	"github.com/danmuck/lintx/internal/source/stm32serial"
	"github.com/danmuck/lintx/internal/source/systemstate"
)

// Modules returns a fresh registry of every builtin module, hardware modules
// wired to their real device openers.
func Modules() *module.Registry {
	return module.NewRegistry().MustRegister(
		adc.Module(nil),
		stm32serial.Module(nil),
		crsfrcin.Module(nil),
		mock.Module(),
		systemstate.Module(),
		monitor.Module(),
		record.RecordModule(),
		record.ReplayModule(),
	)
}
