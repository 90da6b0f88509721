// One-shot rendering: reads a stored market snapshot from a JSON file (or
// stdin) and prints the plain-text context block.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"market-context-lab/internal/contextblock"
	"market-context-lab/internal/domain"
)

func main() {
	snapshotFile := flag.String("snapshot", "", "Path to snapshot JSON (default: read stdin)")
	flag.Parse()

	var data []byte
	var err error
	if *snapshotFile != "" {
		data, err = os.ReadFile(*snapshotFile)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
		os.Exit(1)
	}

	var snap *domain.MarketSnapshot
	if len(data) > 0 {
		snap = &domain.MarketSnapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding snapshot: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println(contextblock.RenderSnapshot(snap))
}
