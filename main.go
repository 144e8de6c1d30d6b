// ./main.go
package main

import (
	"github.com/xkilldash9x/deskops/cmd"
)

// main is the entry point for the deskops CLI. Command-line parsing,
// configuration, and execution all live in the cmd package.
func main() {
	cmd.Execute()
}
