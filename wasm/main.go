//go:build wasm

package main

import (
	"syscall/js"
)

func main() {
	// Export functions to JavaScript
	js.Global().Set("PanscanNewScanner", js.FuncOf(newScanner))
	js.Global().Set("PanscanScan", js.FuncOf(scan))
	js.Global().Set("PanscanScanBatch", js.FuncOf(scanBatch))
	js.Global().Set("PanscanCloseScanner", js.FuncOf(closeScanner))
	js.Global().Set("PanscanGetBuiltinRules", js.FuncOf(getBuiltinRules))

	// Keep WASM running
	<-make(chan struct{})
}
