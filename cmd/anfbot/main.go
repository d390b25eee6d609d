package main

import (
	"os"

	"github.com/tillberg/autorestart"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/cli"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
