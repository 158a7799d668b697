package main

import "github.com/stackguardian/tplsync/internal/cli"

func main() {
	cli.Execute()
}
