// Package tui renders run output for the terminal: the startup banner,
// status coloring and the markdown run report.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/stateflow/pkg/domain"
)

// PrintBanner writes the ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`      _        _        __ _               `, "#818cf8"},
		{`  ___| |_ __ _| |_ ___ / _| | _____      __`, "#a78bfa"},
		{` / __| __/ _' | __/ _ \ |_| |/ _ \ \ /\ / /`, "#c084fc"},
		{` \__ \ || (_| | ||  __/  _| | (_) \ V  V / `, "#e879f9"},
		{` |___/\__\__,_|\__\___|_| |_|\___/ \_/\_/  `, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, line := range lines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}

// ColorStatus renders a run status with its conventional color: green for
// completed, red for failed, yellow for aborted or cancelled.
func ColorStatus(status domain.Status) string {
	p := termenv.ColorProfile()
	s := termenv.String(string(status))
	switch status {
	case domain.StatusCompleted:
		s = s.Foreground(p.Color("#22c55e")).Bold()
	case domain.StatusFailed:
		s = s.Foreground(p.Color("#ef4444")).Bold()
	case domain.StatusAborted, domain.StatusCancelled:
		s = s.Foreground(p.Color("#eab308")).Bold()
	}
	return s.String()
}
