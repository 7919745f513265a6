package main

import "github.com/xivkit/modpack/cmd/modpack-inspect/cmd"

func main() {
	cmd.Execute()
}
