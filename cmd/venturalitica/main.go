package main

import "github.com/venturalitica/venturalitica-go/internal/cli"

func main() {
	cli.Execute()
}
