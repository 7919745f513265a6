package main

import "github.com/xivkit/modpack/cmd/modpack-install/cmd"

func main() {
	cmd.Execute()
}
