package main

import "github.com/timwarnock/runone/internal/cmd"

func main() {
	cmd.Execute()
}
