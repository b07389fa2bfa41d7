package main

import "github.com/kmahone/strum/cmd"

func main() {
	cmd.Execute()
}
