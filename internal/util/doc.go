// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the terminal front ends.
//
//   - TruncateWidth, PadRight, StringWidth: column-aware string fitting
//   - ShortID: display prefix of an opaque identifier
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
