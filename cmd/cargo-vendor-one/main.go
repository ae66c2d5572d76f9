package main

import "cargo-vendor-one/internal/cli"

func main() {
	cli.Execute()
}
