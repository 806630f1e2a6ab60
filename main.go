// Package main provides a pointer to coresim's real entry points.
//
// For the full CLI, use: go run ./cmd/alphacore
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("coresim - Alpha AXP (EV6/21264) core emulator")
	fmt.Println("")
	fmt.Println("Usage: alphacore [options] <guest.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config     Path to a machine configuration JSON file")
	fmt.Println("  -log        Diagnostic log file")
	fmt.Println("  -max-steps  Stop after this many core steps even if no CPU halted")
	fmt.Println("  -v          Also log info-level messages (image load, halt)")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/alphacore' for the full CLI, or")
	fmt.Println("'go run ./cmd/alphaprofile' for the profiling harness.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/alphacore' instead.")
	}
}
