// Package cmd implements the command-line interface for the sVS synchronized
// versioned store. It provides a hierarchical command structure with operations
// for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - store: Commands for store operations (get, set, watch, flush, etc.)
//   - serve: Commands for starting and configuring the sVS server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See svs -help for a list of all commands.
package cmd
