// Package scraper talks to the strong-motion web portal of the Turkish
// national seismic network.
//
// The portal answers searches with HTML whose result table is not well formed
// (upper-case tags, unquoted attributes, stray <br> tags). ExtractTable cuts the
// table out of a response and rebuilds it through an allow-list sanitizer so it
// can be read positionally. Search posts the search form and picks the first
// result row inside the time and distance windows, Resolve follows the matched
// event to its per-station data links, and Download stores each station file.
package scraper
