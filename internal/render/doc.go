// Package render lays out revealed reviews and writes the dashboard view.
//
// [Layout] is the list container: it turns an ordered slice into keyed
// slots and marks the last one as entering when asked. It knows nothing
// about fetching.
//
// Three output formats are supported:
//   - text: terminal output (default)
//   - json: the full view model
//   - html: a standalone page; the entering review carries the
//     review--entering class
//
// Use [GetWriter] to obtain a [Writer] for a format string.
package render
