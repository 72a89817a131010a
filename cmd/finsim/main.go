package main

import "github.com/dyike/FinSim/internal/cli"

func main() {
	cli.Run()
}
