package main

import "github.com/oshokin/gpufan/cmd/gpufan/cmd"

func main() {
	cmd.Execute()
}
