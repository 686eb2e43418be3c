package main

import "tubesb/cmd"

func main() {
	cmd.Execute()
}
