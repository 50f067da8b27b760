// The main package for the contact-crawler executable.
package main

import (
	"github.com/JakeFAU/contact-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
