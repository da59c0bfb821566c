// Package logging provides named loggers for all sVS subsystems with a
// process-wide level control. It is a thin facade over hashicorp/go-hclog:
// every subsystem (storage, store, sync, rpc, ...) obtains its logger via
// GetLogger and the CLI configures verbosity once via SetGlobalLogLevel.
//
// The library packages themselves return errors instead of logging; loggers
// are used at the boundaries where an error is absorbed rather than
// propagated (flush retries, reconnects, migration fallbacks).
package logging
