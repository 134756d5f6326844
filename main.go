// file: main.go
// version: 2.0.0
// guid: 8f65a31b-a526-4361-ad54-42a2d5c423e4

package main

import (
	"fmt"
	"os"

	"github.com/jdfalk/anime-organizer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
