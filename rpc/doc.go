// Package rpc contains the network side of the system.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures and the shared logger setup.
//
//   - fsproxy: HTTP server exposing a backend.IBackend under /api/fs, so that
//     document stores in other processes reach one backend through the
//     httpbackend client.
package rpc
