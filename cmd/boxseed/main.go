package main

import "github.com/MeKo-Tech/boxseed/cmd/boxseed/cmd"

func main() {
	cmd.Execute()
}
