package main

import "github.com/adrennan/cordix/cmd/cordix/cmd"

func main() {
	cmd.Execute()
}
