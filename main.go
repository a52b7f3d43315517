package main

import "github.com/drgolem/liteplayer/cmd"

func main() {
	cmd.Execute()
}
