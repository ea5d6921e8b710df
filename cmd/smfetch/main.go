package main

import "github.com/pfrederiksen/smfetch/internal/cli"

func main() {
	cli.Execute()
}
