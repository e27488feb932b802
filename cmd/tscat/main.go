package main

import (
	"log"
	"os"
)

func main() {
	if err := New().Execute(); err != nil {
		log.Printf("error during command execution: %v", err)
		os.Exit(1)
	}
}
