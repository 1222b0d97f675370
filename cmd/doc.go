// Package cmd implements the skydream command-line interface.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the HTTP file proxy on top of a local backend
//   - admin: Account and record administration (init, reset, users, report, stats, reindex, ...)
//   - util: Shared flag, configuration and backend wiring (internal use)
//
// See skydream -help for a list of all commands.
package cmd
