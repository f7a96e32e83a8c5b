package main

import "github.com/fernfield/pointpat-cli/cmd"

func main() {
	cmd.Execute()
}
