package main

import "chatkeep/cmd"

func main() {
	cmd.Execute()
}
