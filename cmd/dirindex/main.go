package main

import "github.com/mvp-joe/dirindex/internal/cli"

func main() {
	cli.Execute()
}
