package main

import (
	"os"

	"github.com/JoeShih716/go-ledger/internal/commands"
)

func main() {
	os.Exit(commands.Execute())
}
