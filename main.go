package main

import "pkgforge/src/cmd"

func main() {
	cmd.Execute()
}
