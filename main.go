package main

import "github.com/bascanada/hblog/cmd"

func main() {
	cmd.Execute()
}
