package main

import "repost-manager/cmd"

func main() {
	cmd.Execute()
}
