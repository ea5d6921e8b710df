// Package event provides the search criteria and candidate event types used to
// locate an earthquake in the strong-motion portal.
//
// A search yields an ordered list of candidates read from the portal's result
// table. Match applies the tolerance windows of the criteria and accepts the
// first candidate inside both the time and the distance window, in table order.
package event
