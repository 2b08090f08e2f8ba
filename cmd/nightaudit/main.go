package main

import "github.com/ppiankov/nightaudit/internal/cli"

func main() {
	cli.Execute()
}
