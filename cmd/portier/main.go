// Command portier runs an authenticating reverse proxy. It fronts a
// single upstream service, authenticates every request through a set
// of pluggable handlers, and forwards the resolved identity to the
// upstream as X-Forwarded-* headers.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
