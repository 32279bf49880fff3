package main

import "book-comps/internal/cli"

func main() {
	cli.Execute()
}
