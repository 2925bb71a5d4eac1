package main

import "demo-engine/cmd"

func main() {
	cmd.Execute()
}
