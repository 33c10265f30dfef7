package main

import "github.com/codecoevoer/coevoer/cmd"

func main() {
	cmd.Execute()
}
