package main

import (
	"os"

	"github.com/ralph-loop/ralph/internal/ralphcli"
)

func main() {
	os.Exit(ralphcli.Main())
}
