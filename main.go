package main

import "github.com/KaramelBytes/datamend-cli/cmd"

func main() {
	cmd.Execute()
}
