package main

import (
	"fmt"

	"sentinel/internal/config"
)

// runSchema prints the JSON schema of the Sentinelfile.
func runSchema(args []string, deps commandDeps) int {
	if _, code, done := loadCommandConfig(args, deps); done {
		return code
	}
	data, err := config.SchemaJSON()
	if err != nil {
		fmt.Fprintln(deps.Stderr, err)
		return 1
	}
	fmt.Fprintln(deps.Stdout, string(data))
	return 0
}
