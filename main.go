package main

import (
	"os"

	"github.com/smazurov/starter-template/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
