package main

import (
	"db-pour/cmd"
)

func main() {
	cmd.Execute()
}
