package main

import (
	"fmt"
	"runtime"
)

// Version is set at build time via ldflags.
var Version = "v0.1.0"

// PrintVersion prints the binary version and platform.
func PrintVersion() {
	fmt.Printf("paraphrase-gateway %s\n", Version)
	fmt.Printf("Runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
