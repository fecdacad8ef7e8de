package main

import "github.com/yyya-nico/AnySound-Sequencer/cmd"

func main() {
	cmd.Execute()
}
