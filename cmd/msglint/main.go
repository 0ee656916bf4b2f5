package main

import (
	"os"

	"github.com/breml/msglint/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
