package main

import "github.com/davewx7/Wizard-Tactics/cmd"

func main() {
	cmd.Execute()
}
