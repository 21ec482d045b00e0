package main

import (
	"os"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
