// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package container reads and writes the framing layer of a log store:
// a fixed header followed by a sequence of checksummed, length-delimited
// frames.  It knows nothing about what is inside a frame.
//
// A store looks like:
//
//	┌───────────────────┐
//	│ file header       │  128 bytes
//	├───────────────────┤
//	│ frame             │
//	├───────────────────┤
//	│ frame             │
//	├───────────────────┤
//	│ ...               │
//	└───────────────────┘
//
// The header carries the magic number, the format version, the record
// count (only meaningful when flagCountDeclared is set), the frame codec
// and cipher, a random file ID and the creation time:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             | version           |
//	+----+----+----+----+----+----+----+----+
//	| record count                          |
//	+----+----+----+----+----+----+----+----+
//	| flags             |cdc |cphr| 0  | 0  |
//	+----+----+----+----+----+----+----+----+
//	| file ID (16 bytes)                    |
//	+----+----+----+----+----+----+----+----+
//	|                                       |
//	+----+----+----+----+----+----+----+----+
//	| created (unix nanoseconds)            |
//	+----+----+----+----+----+----+----+----+
//
// Frames start with a fixed 8-byte header:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| payload checksum  | payload length    |
//	+----+----+----+----+----+----+----+----+
//	| payload...                            |
//	+----+----+----+----+----+----+----+----+
//
// The checksum is farm.Hash32 of the payload bytes as stored (after any
// compression or encryption), so on-disk damage is detected before any
// decode step runs.
package container
