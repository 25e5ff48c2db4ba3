package main

import "github.com/safestats/ms-account/cmd"

func main() {
	cmd.Execute()
}
