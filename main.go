package main

import "carebook-server/internal/cli"

func main() {
	cli.Execute()
}
