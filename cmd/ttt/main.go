package main

import "github.com/mcoot/tictactoe-server/internal/cli"

func main() {
	cli.Execute()
}
