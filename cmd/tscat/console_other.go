//go:build !windows

package main

func manageConsole(debug bool) {}
