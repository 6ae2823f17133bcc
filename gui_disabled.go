//go:build !gui

package main

import (
	"fmt"
	"os"
)

func runGUI(a *app) {
	fmt.Fprintln(os.Stderr, "hark: built without GUI support (rebuild with -tags gui)")
	a.close(nil)
	os.Exit(1)
}
