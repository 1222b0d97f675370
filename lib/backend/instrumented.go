package backend

import (
	"context"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const (
	opRead   = "read"
	opWrite  = "write"
	opDelete = "delete"
	opMkdir  = "mkdir"
	opList   = "list"
)

// instrumentedBackend records a timer and an error counter per operation.
type instrumentedBackend struct {
	next     IBackend
	timers   map[string]gometrics.Timer
	failures map[string]gometrics.Counter
}

// Instrument wraps b so that every call is timed in registry under
// "backend.<op>" and every failure counted under "backend.<op>.errors".
// A nil registry uses gometrics.DefaultRegistry.
func Instrument(b IBackend, registry gometrics.Registry) IBackend {
	if registry == nil {
		registry = gometrics.DefaultRegistry
	}
	ib := &instrumentedBackend{
		next:     b,
		timers:   make(map[string]gometrics.Timer),
		failures: make(map[string]gometrics.Counter),
	}
	for _, op := range []string{opRead, opWrite, opDelete, opMkdir, opList} {
		ib.timers[op] = gometrics.GetOrRegisterTimer("backend."+op, registry)
		ib.failures[op] = gometrics.GetOrRegisterCounter("backend."+op+".errors", registry)
	}
	return ib
}

func (ib *instrumentedBackend) observe(op string, start time.Time, err error) {
	ib.timers[op].UpdateSince(start)
	if err != nil {
		ib.failures[op].Inc(1)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (ib *instrumentedBackend) Read(ctx context.Context, path string) (value []byte, loaded bool, err error) {
	defer func(start time.Time) { ib.observe(opRead, start, err) }(time.Now())
	return ib.next.Read(ctx, path)
}

func (ib *instrumentedBackend) Write(ctx context.Context, path string, value []byte) (err error) {
	defer func(start time.Time) { ib.observe(opWrite, start, err) }(time.Now())
	return ib.next.Write(ctx, path, value)
}

func (ib *instrumentedBackend) Delete(ctx context.Context, path string) (err error) {
	defer func(start time.Time) { ib.observe(opDelete, start, err) }(time.Now())
	return ib.next.Delete(ctx, path)
}

func (ib *instrumentedBackend) Mkdir(ctx context.Context, path string) (err error) {
	defer func(start time.Time) { ib.observe(opMkdir, start, err) }(time.Now())
	return ib.next.Mkdir(ctx, path)
}

func (ib *instrumentedBackend) List(ctx context.Context, path string) (names []string, err error) {
	defer func(start time.Time) { ib.observe(opList, start, err) }(time.Now())
	return ib.next.List(ctx, path)
}

func (ib *instrumentedBackend) Close() error {
	return ib.next.Close()
}
