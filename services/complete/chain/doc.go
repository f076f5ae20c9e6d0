// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chain finds call chains that produce a value of an expected type.
//
// A chain is a sequence of member accesses starting at a symbol visible at
// the cursor, for example `getFoo().bar`, whose final access yields a value
// assignable to the type the cursor expects. The Finder performs a bounded
// breadth-first search over partial chains using two capabilities of the
// host symbol model: member enumeration and type assignability.
//
// # Search
//
// The Finder keeps a FIFO queue of partial chains per expected type. Each
// popped chain is tested for completion against the expected type; complete
// chains within the depth bounds are recorded, others are expanded by one
// member access when depth and the frontier admission cap allow. Shorter
// chains are therefore always discovered before longer ones.
//
// # Caches
//
// A Finder memoizes member enumeration by (type, staticOnly), assignability
// by (element, expected type), and wraps each symbol in exactly one Element.
// Caches live as long as the Finder; create one Finder per request.
//
// # Cancellation
//
// The context passed to Find is checked at the top of every loop iteration.
// Cancellation is not an error: Find returns whatever chains were recorded
// and sets Result.Cancelled. The Finder never starts timers; callers enforce
// wall-clock budgets by cancelling the context.
//
// # Thread Safety
//
// A Finder is not safe for concurrent use. Separate Finders may share one
// symbols.Model, which must be safe for concurrent reads.
package chain
