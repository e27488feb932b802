//go:build windows

package main

import "syscall"

// manageConsole detaches the window from the console it was started from
// unless debug output is wanted.
func manageConsole(debug bool) {
	if debug {
		return
	}
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	freeConsole := kernel32.NewProc("FreeConsole")
	freeConsole.Call()
}
