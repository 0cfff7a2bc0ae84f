package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Anamnesis banner with the release version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"    _                                     _", "#5eead4"},
		{"   /_\\  _ _  __ _ _ __  _ _  ___ ___ ___(_)___", "#2dd4bf"},
		{"  / _ \\| ' \\/ _` | '  \\| ' \\/ -_|_-</ -_) (_-<", "#14b8a6"},
		{" /_/ \\_\\_||_\\__,_|_|_|_|_||_\\___/__/\\___|_/__/", "#0d9488"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
