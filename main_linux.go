//go:build linux

package main

func main() {
	a := setup()
	if a.opts.gui {
		runGUI(a)
		return
	}
	run(a)
}
