package interactor

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is a parsed interactor line.
type Command struct {
	Name string
	Args []string
}

var aliases = map[string]string{
	"":             "all",
	"a":            "all",
	"all":          "all",
	"c":            "change",
	"change":       "change",
	"s":            "scope",
	"scope":        "scope",
	"p":            "pause",
	"pause":        "pause",
	"r":            "reload",
	"reload":       "reload",
	"re":           "reevaluate",
	"reevaluate":   "reevaluate",
	"n":            "notification",
	"notification": "notification",
	"show":         "show",
	"h":            "help",
	"help":         "help",
	"e":            "exit",
	"exit":         "exit",
	"q":            "exit",
	"quit":         "exit",
}

// Parse splits a line into a command and its arguments. An empty line is
// "all".
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	name := ""
	if len(fields) > 0 {
		name = strings.ToLower(fields[0])
		fields = fields[1:]
	}
	canonical, ok := aliases[name]
	if !ok {
		return Command{}, fmt.Errorf("%w %q, type help for the list", ErrUnknownCommand, name)
	}
	var args []string
	for _, field := range fields {
		for _, part := range strings.Split(field, ",") {
			if part = strings.TrimSpace(part); part != "" {
				args = append(args, part)
			}
		}
	}
	return Command{Name: canonical, Args: args}, nil
}

const helpText = `Commands:
  all [scope]        run all plugins, or the given groups/plugins (empty line)
  change <paths>     dispatch paths as modified
  scope [scope]      set the default scope; no argument clears it
  pause              toggle file event handling
  reload [scope]     run the reload task
  reevaluate         reload the Sentinelfile
  notification       toggle notifications
  show               list groups and plugins
  exit               stop and quit
`
