package module

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// NewFlagSet returns a flag set that reports parse errors instead of exiting.
func NewFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false
	return fs
}

// ParseArgs parses args into fs and prefixes parse errors with name. A help
// request is reported as ErrHelp so callers can exit cleanly without running.
func ParseArgs(name string, fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ErrHelp
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ErrHelp is returned by ParseArgs when -h/--help was given.
var ErrHelp = pflag.ErrHelp
