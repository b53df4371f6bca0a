package main

import (
	// Embedded zone database so TIMEZONE works on minimal images.
	_ "time/tzdata"

	"github.com/naka-gawa/gist-index/cmd"
)

func main() {
	cmd.Execute()
}
