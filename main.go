package main

import "repo-sync/cmd"

func main() {
	cmd.Execute()
}
