package main

import "github.com/encodeous/lsr/cmd"

func main() {
	cmd.Execute()
}
