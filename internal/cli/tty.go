package cli

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when an interview is requested without a terminal.
var ErrNotInteractive = errors.New("interview requires an interactive terminal (use --plain to force)")

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
