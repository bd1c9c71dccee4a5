package blockifier

import "github.com/kariy/blockifier/metrics"

// instrumentSet is the fixed group of instruments a Runner records against its
// configured metrics.Provider. Built once in newRunner and shared read-only by
// every dispatcher goroutine, mirroring how the corpus's option layer builds
// collaborator-facing state once at construction time rather than per call.
type instrumentSet struct {
	inflight     metrics.UpDownCounter
	executions   metrics.Counter
	validations  metrics.Counter
	aborts       metrics.Counter
	commits      metrics.Counter
	incarnations metrics.Histogram
}

func newInstrumentSet(p metrics.Provider) instrumentSet {
	return instrumentSet{
		inflight: p.UpDownCounter("blockifier.inflight",
			metrics.WithDescription("execution/validation calls currently running"),
			metrics.WithUnit("1")),
		executions: p.Counter("blockifier.executions",
			metrics.WithDescription("completed execution attempts, success or fatal error"),
			metrics.WithUnit("1")),
		validations: p.Counter("blockifier.validations",
			metrics.WithDescription("completed validation attempts"),
			metrics.WithUnit("1")),
		aborts: p.Counter("blockifier.aborts",
			metrics.WithDescription("transactions moved back to ReadyToExecute by a failed validation"),
			metrics.WithUnit("1")),
		commits: p.Counter("blockifier.commits",
			metrics.WithDescription("transactions committed"),
			metrics.WithUnit("1")),
		incarnations: p.Histogram("blockifier.incarnations",
			metrics.WithDescription("number of incarnations a transaction had at the time it committed"),
			metrics.WithUnit("1")),
	}
}
