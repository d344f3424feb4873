package main

import "os"

func main() {
	command, args := resolveCommand(os.Args[1:], defaultCommandDeps())
	os.Exit(command.Run(args))
}
