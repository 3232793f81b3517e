package main

import "outpostlabs/outpost/cmd"

func main() {
	cmd.Execute()
}
