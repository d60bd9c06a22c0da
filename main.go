package main

import "contextimage/internal/cmd"

func main() {
	cmd.Execute()
}
