package main

import (
	"os"

	"github.com/wonny/xray/cmd/xray/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
