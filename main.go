package main

import (
	"fmt"
	"os"

	cmd "github.com/converge/converge/cmd/converge"
)

func main() {
	err := cmd.Converge.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
