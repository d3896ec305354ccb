package market

// Provider request outcomes reported to a Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Recorder receives fetch telemetry. The metrics registry implements it.
type Recorder interface {
	RecordProviderRequest(provider, outcome string)
	RecordQuoteCache(hit bool)
	RecordProvidersExhausted()
}

type nopRecorder struct{}

func (nopRecorder) RecordProviderRequest(string, string) {}
func (nopRecorder) RecordQuoteCache(bool)                {}
func (nopRecorder) RecordProvidersExhausted()            {}
