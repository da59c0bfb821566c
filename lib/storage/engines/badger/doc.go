// Package badger implements a storage engine on top of BadgerDB. All stores
// of a process share one database directory; each store occupies a single
// key holding its serialized document.
//
// Compared to the jsonfile engine this trades hand-editability for a
// crash-safe write-ahead log and a single storage location, which suits
// deployments where nobody is expected to open the files in an editor.
package badger
