package main

import "github.com/mcoot/letsplay/internal/cli"

func main() {
	cli.Execute()
}
