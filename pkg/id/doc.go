// Package id provides the 128-bit, lexicographically sortable identifiers
// used as request correlation tokens.
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence],
// so byte-wise (and hex) comparison preserves generation order within a
// process. A regressing clock pins to the last seen millisecond; a sequence
// overflow waits for the next millisecond.
//
//	reqID := id.NewString() // 32 hex chars
package id
