package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/entrhq/cc-hotswap/pkg/store"
)

// printStatus renders the status file, one account per line.
func printStatus(out io.Writer, status *store.StatusFile, now time.Time) error {
	statuses, err := status.Load()
	if err != nil {
		return err
	}
	fmt.Fprint(out, renderStatus(statuses, now))
	return nil
}

func renderStatus(statuses map[string]store.AccountStatus, now time.Time) string {
	if len(statuses) == 0 {
		return mutedStyle.Render("No refresh recorded yet. Run: refresh-cookies --init <name>") + "\n"
	}

	names := store.SortedAccounts(statuses)
	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Sessions") + "\n")
	for _, name := range names {
		s := statuses[name]

		result := failStyle.Render(s.Result)
		if s.OK() {
			result = successStyle.Render(s.Result)
		}

		line := fmt.Sprintf("  %s  %s  %s",
			accountStyle.Render(fmt.Sprintf("%-*s", width, name)),
			result,
			mutedStyle.Render("attempted "+since(now, s.LastAttempt)))
		if !s.OK() && !s.LastSuccess.IsZero() {
			line += mutedStyle.Render(", last OK " + since(now, s.LastSuccess))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// since renders how long ago t was, in whole units.
func since(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
