package main

import (
	"fmt"
	"os"
)

func main() {
	opts := defaultOptions()
	if err := newRootCmd(opts).Execute(); err != nil {
		fmt.Fprintln(opts.stderr, "error:", err)
		os.Exit(1)
	}
}
