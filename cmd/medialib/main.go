package main

import (
	"os"

	"github.com/dl-alexandre/medialib/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
