package main

import "github.com/goldrun-dev/goldrun/cmd"

func main() {
	cmd.Execute()
}
