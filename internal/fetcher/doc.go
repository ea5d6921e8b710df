// Package fetcher runs the strong-motion retrieval pipeline for one target
// earthquake: search the portal, resolve the station data links of the
// matched event and download every station file.
//
// An empty result with a nil error means the portal had nothing for the
// target, either no records at all or no candidate inside the tolerance
// windows. Every other failure is returned as an *Error naming the stage that
// failed.
package fetcher
