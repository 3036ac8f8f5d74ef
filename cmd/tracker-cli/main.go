package main

import (
	"inventory-tracker/cmd/tracker-cli/cmd"
)

func main() {
	cmd.Execute()
}
