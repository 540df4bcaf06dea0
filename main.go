package main

import "github.com/brimoraa/plpchat/cmd"

func main() {
	cmd.Execute()
}
