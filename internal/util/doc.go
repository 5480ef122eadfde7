// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across authform.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - RemoveIfExists: delete a file, ignoring "not found"
//
// Text:
//   - TruncateWidth, StringWidth, PadRight: column-aware string layout
//   - MaskEmail: redact addresses before they reach the log
package util
