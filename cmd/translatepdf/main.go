package main

import (
	"fmt"
	"os"

	"github.com/gdkds12/translatePDF/cmd/translatepdf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
