package main

import (
	"bytes"
	"strings"
	"testing"
)

func recordingDeps(calls *[]string) commandDeps {
	record := func(name string) func([]string, commandDeps) int {
		return func(args []string, _ commandDeps) int {
			*calls = append(*calls, name+":"+strings.Join(args, " "))
			return 0
		}
	}
	return commandDeps{
		Stdout:    &bytes.Buffer{},
		Stderr:    &bytes.Buffer{},
		RunStart:  record("start"),
		RunTask:   record("run"),
		RunList:   record("list"),
		RunSchema: record("schema"),
	}
}

func TestResolveCommand(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{args: nil, want: "start:"},
		{args: []string{"--clear"}, want: "start:--clear"},
		{args: []string{"start", "-g", "backend"}, want: "start:-g backend"},
		{args: []string{"run", "run_all", "backend"}, want: "run:run_all backend"},
		{args: []string{"list"}, want: "list:"},
		{args: []string{"schema"}, want: "schema:"},
	}
	for _, tc := range cases {
		var calls []string
		command, args := resolveCommand(tc.args, recordingDeps(&calls))
		if code := command.Run(args); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if len(calls) != 1 || calls[0] != tc.want {
			t.Fatalf("args %v: expected %q, got %v", tc.args, tc.want, calls)
		}
	}
}
