package main

import "github.com/dirsync/james-connector/internal/interfaces/cli"

func main() {
	cli.Execute()
}
