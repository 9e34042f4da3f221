// Package main is the entry point for the report engine.
package main

import "resell-reports/cmd/reports/cmd"

func main() {
	cmd.Execute()
}
