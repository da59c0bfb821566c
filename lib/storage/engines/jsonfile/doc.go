// Package jsonfile implements the production storage engine: one
// pretty-printed JSON file per store below a base directory, written
// atomically (temp file plus rename) through the shared debounced flusher.
//
// Files are meant to be inspectable and hand-editable while the process is
// stopped. A file that fails to parse is treated as absent and replaced by
// the initial model on the next effective mutation; the engine never
// refuses to start over a broken file.
//
// The engine owns its files from load on. External modification while the
// process runs is not watched for and will be overwritten by the next flush.
package jsonfile
