package main

import (
	"fmt"
	"os"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "xlci:", err)
		os.Exit(cmd.ExitCode(err))
	}
}
