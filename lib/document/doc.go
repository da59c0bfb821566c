// Package document defines the model representation shared by every layer of
// sVS: a Document is a JSON-shaped map, deep-copyable via Clone and
// addressable through explicit path segments (Get, Set, Delete).
//
// The package also provides the structural equality used to suppress
// redundant work throughout the system. Two comparison modes exist:
//
//   - Structural (default): value-based deep comparison, key order ignored,
//     nil-valued keys equal to absent keys
//   - Strict: as above, but nil-valued keys stay distinct from absent keys
//
// Path segments are literal keys. A key containing a dot ("ctx.prod") is
// addressed by a single segment; there is no string splitting and therefore
// no ambiguity between a dotted key and a nested path.
package document
