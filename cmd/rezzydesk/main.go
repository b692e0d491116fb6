package main

import "github.com/example/rezzydesk/cmd"

func main() {
	cmd.Execute()
}
