// Package job runs three-phase build jobs. Prepare and Finalize run on the
// goroutine that owns the Executor; Execute runs on a fixed pool of workers.
package job

// Job is the three-phase contract.
//
// Prepare runs on the submitting goroutine and may touch main-thread state;
// returning false aborts the job. Execute runs on a worker and must only use
// job-local data plus the shared Scratch. Finalize runs back on the owning
// goroutine and receives whether both earlier phases succeeded.
type Job interface {
	Prepare() bool
	Execute(s *Scratch) bool
	Finalize(ok bool)
}

// Funcs adapts three closures to Job. A nil phase counts as success.
type Funcs struct {
	PrepareFn  func() bool
	ExecuteFn  func(s *Scratch) bool
	FinalizeFn func(ok bool)
}

func (f Funcs) Prepare() bool {
	if f.PrepareFn == nil {
		return true
	}
	return f.PrepareFn()
}

func (f Funcs) Execute(s *Scratch) bool {
	if f.ExecuteFn == nil {
		return true
	}
	return f.ExecuteFn(s)
}

func (f Funcs) Finalize(ok bool) {
	if f.FinalizeFn != nil {
		f.FinalizeFn(ok)
	}
}
