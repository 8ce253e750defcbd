package main

import "postmatch/cmd"

func main() {
	cmd.Execute()
}
