// Package station reads the fixed-format text files served by the Turkish
// national strong-motion network.
//
// A file starts with colon-delimited header lines (STATION ID, STATION COORD,
// STATION ALT, RECORD TIME, NUMBER OF DATA, SAMPLING INTERVAL), followed by a
// line starting with N-S, followed by one line per sample holding the
// North-South, East-West and Up-Down accelerations in cm/s². Parse returns the
// three components scaled to m/s² as traces that share the header metadata.
package station
