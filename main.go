package main

import "github.com/iksnae/msghelp/cmd"

func main() {
	cmd.Execute()
}
