package main

import "github.com/certivo/certivo/cmd/certivo/cmd"

func main() {
	cmd.Execute()
}
