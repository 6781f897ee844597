package main

import "github.com/tanq16/radiograb/cmd"

func main() {
	cmd.Execute()
}
