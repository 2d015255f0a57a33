package main

import "github.com/agentarena/agentarena/internal/cli"

func main() {
	cli.Execute()
}
