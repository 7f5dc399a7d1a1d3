// The main package for the fixcrawl executable.
package main

import (
	"github.com/pricefeed/fixprice-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
