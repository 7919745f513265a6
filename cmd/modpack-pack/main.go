package main

import "github.com/xivkit/modpack/cmd/modpack-pack/cmd"

func main() {
	cmd.Execute()
}
