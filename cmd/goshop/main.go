// Command goshop is a terminal storefront client.
package main

import (
	"os"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
