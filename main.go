package main

import (
	"github.com/wappanel/wappanel/cmd"
)

func main() {
	cmd.Execute()
}
