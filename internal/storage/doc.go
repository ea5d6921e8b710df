// Package storage writes downloaded station files into an output directory.
//
// File names are deterministic, {event time UTC as YYYYMMDDHHMMSS}_{station}.txt,
// so downloading the same event twice overwrites the earlier files instead of
// accumulating copies. No manifest or subdirectories are created.
package storage
