// Package core converts materials-data CSV templates into PIF records.
//
// This package holds all conversion logic independent of any file format,
// transport or storage. It can be used by the CLI, the HTTP service, the
// inbox watcher, or tests without modification.
//
// # Templates
//
// The first non-empty row of a template is a header whose cells follow a
// small mini-language:
//
//	[SUBSYSTEM <label>] KEYWORD[: display name] [(unit)] [((note))]
//
// [DecodeHeaders] turns that row into [Column] values. Every following row
// becomes one [Record] built by [BuildRecord]: cells are dispatched on the
// column keyword to a [SystemBuilder], one per subsystem, and the finished
// subsystems hang off the row's main system.
//
// # Streaming
//
// [Converter] pulls rows from any [RowReader] (an *encoding/csv.Reader in
// practice) and yields records one at a time, so memory stays proportional
// to a single row:
//
//	conv := core.NewConverter(r, core.WithContext(ctx))
//	for conv.Next() {
//	    rec := conv.Record()
//	}
//	if err := conv.Err(); err != nil { ... }
//
// [Records] offers the same stream as an iter.Seq2.
//
// # Error Handling
//
// Template mistakes are returned as *[ConversionError] with a kind, a code
// and the 1-based line and column. The first one ends the stream. Problems
// that do not make a row ambiguous, such as unknown header keywords, are
// attached to the record as [Diagnostic] values instead.
//
// [MapError] turns any error, typed or not, into a [UserMessage] for display.
package core
