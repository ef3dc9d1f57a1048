package main

import "github.com/drivemcp/drivemcp/cmd"

var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
