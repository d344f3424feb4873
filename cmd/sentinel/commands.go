package main

import (
	"io"
	"os"
)

type command interface {
	Run(args []string) int
}

type commandDeps struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	RunStart  func(args []string, deps commandDeps) int
	RunTask   func(args []string, deps commandDeps) int
	RunList   func(args []string, deps commandDeps) int
	RunSchema func(args []string, deps commandDeps) int
}

func defaultCommandDeps() commandDeps {
	return commandDeps{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		RunStart:  runStart,
		RunTask:   runTask,
		RunList:   runList,
		RunSchema: runSchema,
	}
}

type startCommand struct {
	deps commandDeps
}

func (c startCommand) Run(args []string) int {
	return c.deps.RunStart(args, c.deps)
}

type taskCommand struct {
	deps commandDeps
}

func (c taskCommand) Run(args []string) int {
	return c.deps.RunTask(args, c.deps)
}

type listCommand struct {
	deps commandDeps
}

func (c listCommand) Run(args []string) int {
	return c.deps.RunList(args, c.deps)
}

type schemaCommand struct {
	deps commandDeps
}

func (c schemaCommand) Run(args []string) int {
	return c.deps.RunSchema(args, c.deps)
}

func resolveCommand(args []string, deps commandDeps) (command, []string) {
	if len(args) > 0 {
		switch args[0] {
		case "start":
			return startCommand{deps: deps}, args[1:]
		case "run":
			return taskCommand{deps: deps}, args[1:]
		case "list":
			return listCommand{deps: deps}, args[1:]
		case "schema":
			return schemaCommand{deps: deps}, args[1:]
		}
	}
	return startCommand{deps: deps}, args
}
