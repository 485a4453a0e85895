package main

import (
	"fmt"
	"log"

	vcdiff "github.com/fenwick-labs/vcdiff"
)

func main() {
	source := []byte("Hello, World! This is the original document.")
	target := []byte("Hello, Go! This is the updated document, with more text.")

	cfg := vcdiff.DefaultStreamConfig()

	delta, err := vcdiff.Encode(source, target, cfg)
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Printf("source:  %d bytes\n", len(source))
	fmt.Printf("target:  %d bytes\n", len(target))
	fmt.Printf("delta:   %d bytes\n", len(delta))

	result, err := vcdiff.Decode(source, delta)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	if string(result) != string(target) {
		log.Fatalf("round-trip mismatch: got %q, want %q", result, target)
	}
	fmt.Printf("round-trip OK: %q\n", result)

	parsed, err := vcdiff.ParseDelta(delta)
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	fmt.Printf("windows: %d, instructions: %d\n", len(parsed.Windows), len(parsed.Instructions))
}
