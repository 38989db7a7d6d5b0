package main

import "mindping-core/cmd"

func main() {
	cmd.Run()
}
