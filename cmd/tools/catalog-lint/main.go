// cmd/tools/catalog-lint/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"gatekeeper/internal/catalog"
)

func main() {
	path := flag.String("file", "configs/catalog.json", "Path to the interview catalog file")
	flag.Parse()

	cat, err := catalog.LoadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: catalog %s is invalid: %v\n", *path, err)
		os.Exit(1)
	}

	fmt.Printf("Catalog %s is valid: %d questions\n", *path, cat.Len())
	for i, q := range cat.Questions() {
		check := "-"
		if q.Validator != nil {
			check = "custom"
		}
		fmt.Printf("  %2d. %-12s maxLen=%-5d check=%s\n", i+1, q.Key, q.MaxLen, check)
	}
}
