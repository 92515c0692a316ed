package main

import (
	"fmt"
	"os"

	"github.com/gilchrisn/scrna-analysis-service/cmd/cellsweep/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
