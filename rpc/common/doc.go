// Package common holds the configuration and logging shared by the file
// proxy, the backends and the command-line interface.
//
// Key Components:
//
//   - BackendConfig: selects a backend kind (fs, memory, sqlite, s3, http)
//     and carries the settings of each.
//
//   - ServerConfig: endpoint, timeouts and body limit of the file proxy.
//
//   - StoreConfig: backend plus cache and fan-out tuning of a document store.
//
//   - Logger: formatting logger factory registered with Dragonboat's logger
//     package, so every package obtains its logger via logger.GetLogger and
//     InitLoggers sets one level for all of them.
package common
