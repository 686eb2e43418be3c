package pipeline

import (
	"github.com/samber/mo"

	"tubesb/internal/diag"
	"tubesb/internal/extract"
)

// Result is the outcome of one run: either a payload or a classified error,
// always with the run's diagnostics.
type Result[T any] struct {
	res   mo.Result[[]T]
	trace diag.Snapshot
}

func success[T any](payload []T, trace diag.Snapshot) Result[T] {
	return Result[T]{res: mo.Ok(payload), trace: trace}
}

func failure[T any](err *extract.Error, trace diag.Snapshot) Result[T] {
	return Result[T]{res: mo.Err[[]T](err), trace: trace}
}

// Ok reports whether the run succeeded.
func (r Result[T]) Ok() bool {
	return r.res.IsOk()
}

// Payload returns the payload, or the error if the run failed.
func (r Result[T]) Payload() ([]T, error) {
	return r.res.Get()
}

// Err returns the classified error, or nil on success.
func (r Result[T]) Err() *extract.Error {
	if r.res.IsOk() {
		return nil
	}
	return extract.Classify(r.res.Error())
}

// Diagnostics returns the trace of the run, frozen at delivery.
func (r Result[T]) Diagnostics() diag.Snapshot {
	return r.trace
}
