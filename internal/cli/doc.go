// Package cli implements the command-line interface for smfetch.
//
// The cli package provides the Cobra-based CLI with two commands: fetch, which
// searches the strong-motion portal for an earthquake and downloads the station
// files that recorded it, and parse, which summarizes downloaded station files.
// Both write text or JSON to stdout; logs go to stderr as JSON lines.
package cli
