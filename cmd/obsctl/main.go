package main

import "github.com/observatorio-ti/observatorio/cmd/obsctl/cli"

func main() {
	cli.Execute()
}
