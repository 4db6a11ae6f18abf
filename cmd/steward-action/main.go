package main

import "github.com/oshokin/scala-steward-action/cmd/steward-action/cmd"

func main() {
	cmd.Execute()
}
