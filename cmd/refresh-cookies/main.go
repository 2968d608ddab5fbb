// Package main provides refresh-cookies, the one-shot companion of the
// cookie daemon: interactive login for one account, a batch refresh of
// every saved account, or a summary of the last outcomes.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
