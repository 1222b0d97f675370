// Package fsproxy serves a backend.IBackend over HTTP so that document stores
// in other processes can share one data directory.
//
// Endpoints (path is always passed as the "path" query parameter):
//
//	GET    /api/health           liveness check
//	GET    /api/fs/read?path=    raw value, 404 if missing
//	POST   /api/fs/write?path=   raw request body becomes the value
//	DELETE /api/fs/delete?path=  recursive, missing paths succeed
//	POST   /api/fs/mkdir?path=   idempotent
//	GET    /api/fs/list?path=    JSON array of child names, empty if missing
//	GET    /metrics              Prometheus text format
//
// Invalid paths are answered with 400, backend failures with 500. CORS is
// open to every origin. The matching client is backend/httpbackend.
package fsproxy
