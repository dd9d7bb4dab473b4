// The main package for the ragcrawl executable.
package main

import (
	"github.com/JakeFAU/rag-site-crawler/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
