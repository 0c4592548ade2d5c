package main

import "github.com/miradorstack/mirador-failchain/internal/cli"

func main() {
	cli.Execute()
}
