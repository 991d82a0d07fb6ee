package main

import "github.com/KaramelBytes/trackscope-cli/cmd"

func main() {
	cmd.Execute()
}
