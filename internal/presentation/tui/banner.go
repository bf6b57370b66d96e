// Package tui renders workflow output for interactive terminals.
package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"    _", "#34d399"},
	{"   (_)___  __  ___________  ___  __  __", "#2dd4bf"},
	{"  / / __ \\/ / / / ___/ __ \\/ _ \\/ / / /", "#22d3ee"},
	{" / / /_/ / /_/ / /  / / / /  __/ /_/ /", "#38bdf8"},
	{"/ /\\____/\\__,_/_/  /_/ /_/\\___/\\__, /", "#60a5fa"},
	{"/_/                           /____/", "#818cf8"},
}

// PrintBanner writes the ASCII art banner, colored for the terminal's profile.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
