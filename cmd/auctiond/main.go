package main

import (
	"os"

	"github.com/auctionledger/auctiond/cmd/auctiond/commands"
)

func main() {
	if err := commands.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
