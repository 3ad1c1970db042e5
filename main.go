package main

import (
	"pr-pulse/cmd"
)

func main() {
	cmd.Execute()
}
