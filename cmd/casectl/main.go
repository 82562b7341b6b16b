// Command casectl is the operator CLI for the cases API: lookups, audit
// dumps, task reassignment and the administrative status override.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
