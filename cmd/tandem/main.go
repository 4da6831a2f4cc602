package main

import (
	"os"

	"github.com/roach88/tandem/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
