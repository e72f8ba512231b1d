package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ctxvars banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"       _                              ", "#818cf8"},
		{"   ___| |___  ____   ____ _ _ __ ___  ", "#a78bfa"},
		{"  / __| __\\ \\/ /\\ \\ / / _` | '__/ __| ", "#c084fc"},
		{" | (__| |_ >  <  \\ V / (_| | |  \\__ \\ ", "#e879f9"},
		{"  \\___|\\__/_/\\_\\  \\_/ \\__,_|_|  |___/ ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Status formats a one-line status with a coloured marker.
func Status(ok bool, msg string) string {
	p := termenv.ColorProfile()
	if ok {
		return termenv.String("✔ ").Foreground(p.Color("#22c55e")).String() + msg
	}
	return termenv.String("✘ ").Foreground(p.Color("#ef4444")).String() + msg
}
