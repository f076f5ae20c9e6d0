// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package complete

import "errors"

// Sentinel errors for the completion service.
var (
	// ErrSnapshotNotFound indicates no snapshot with the requested ID is loaded.
	ErrSnapshotNotFound = errors.New("snapshot not loaded")

	// ErrSnapshotStale indicates the snapshot file was removed after loading.
	ErrSnapshotStale = errors.New("snapshot file removed")

	// ErrRelativePath indicates a snapshot path that is not absolute.
	ErrRelativePath = errors.New("snapshot path must be absolute")

	// ErrPathTraversal indicates path contains .. traversal sequences.
	ErrPathTraversal = errors.New("path contains traversal sequences")

	// ErrServiceClosed indicates the service has been shut down.
	ErrServiceClosed = errors.New("service closed")
)
