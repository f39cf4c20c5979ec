package main

import "github.com/agentic-research/packdex/cmd"

func main() {
	cmd.Execute()
}
