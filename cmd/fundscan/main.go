package main

import (
	"os"

	"github.com/polifund/fundscan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
