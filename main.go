// The main package for the wpsite executable.
package main

import (
	"github.com/nailsmag/wpsite/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
