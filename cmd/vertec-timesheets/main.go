package main

import "github.com/vertec-tools/timesheets/cmd/vertec-timesheets/cmd"

func main() {
	cmd.Execute()
}
