// Package buffer provides the position geometry and line-indexed text storage
// underneath a text document.
//
// The buffer package provides:
//
//   - Position and Range value types with ordering and containment rules
//   - Edit operations tagged as replace, insert or delete
//   - A line-slice Buffer with lazily maintained prefix sums for
//     offset and position translation
//   - Read-only snapshots for concurrent readers
//
// Coordinates:
//
// Line numbers are 0-indexed. Character columns and absolute offsets are
// measured in UTF-16 code units, the unit used by the language server
// protocol. Offsets count the line terminator of every line but the last.
//
// Basic usage:
//
//	buf := buffer.New("hello\nworld")
//	r := buffer.MustRange(0, 0, 0, 5)
//	buf.Splice(r, "goodbye")      // "goodbye\nworld"
//	buf.PositionAt(8)             // (1:0)
//
// Line Endings:
//
// A buffer joins lines with either \n or \r\n. The terminator is detected
// from the initial content unless WithEOL is given. Text spliced in is split
// on \r\n, \r and \n, so stored lines never contain terminators.
package buffer
