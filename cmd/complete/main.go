// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command complete runs the Aleutian call-chain completion engine.
//
// Usage:
//
//	complete serve --config complete.yaml
//	complete search --snapshot model.yaml --expected pkg.Bar
//	complete members --snapshot model.yaml pkg.Foo
//	complete version
//
// Example API calls against a running server:
//
//	# Load a snapshot
//	curl -X POST http://localhost:12230/v1/complete/snapshots \
//	  -H "Content-Type: application/json" \
//	  -d '{"path": "/path/to/model.yaml"}'
//
//	# Find chains
//	curl -X POST http://localhost:12230/v1/complete/chains \
//	  -H "Content-Type: application/json" \
//	  -d '{"snapshot_id": "<id>", "expected_types": ["pkg.Bar"]}'
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
