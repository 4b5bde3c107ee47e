package main

import (
	"NawaxRadio/cmd"
)

func main() {
	cmd.Execute()
}
