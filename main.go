package main

import "copier/cmd"

func main() {
	cmd.Execute()
}
