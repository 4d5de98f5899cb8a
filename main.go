package main

import "chunkdl/cmd"

func main() {
	cmd.Execute()
}
