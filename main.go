package main

import "pressure-alerts/internal/cli"

func main() {
	cli.Execute()
}
