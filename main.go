// The main package for the minutes-scanner executable.
package main

import (
	"github.com/fleetline/minutes-scanner/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
