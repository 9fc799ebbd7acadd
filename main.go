package main

import "github.com/notargets/femesh/cmd"

func main() {
	cmd.Execute()
}
