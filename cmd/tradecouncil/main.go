package main

import (
	"os"

	"github.com/tradecouncil/tradecouncil/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
