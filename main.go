package main

import "github.com/cryptofono/cryptofono/cmd"

func main() {
	cmd.Execute()
}
