package pipeline

import "time"

// Policy collects the decisions an operator may want to flip per
// deployment.
type Policy struct {
	// MaxRewrites bounds rewrite calls in the quality gate.
	MaxRewrites int
	// PublishOnFailedGate publishes a draft that still fails the gate
	// after MaxRewrites.
	PublishOnFailedGate bool
	// PublishOnPartialAssets publishes when some asset jobs failed or
	// timed out.
	PublishOnPartialAssets bool
	// RefundOnFailure returns the run cost when the run ends FAILED or
	// PUBLISH_FAILED.
	RefundOnFailure bool

	AssetPollInterval time.Duration
	AssetMaxAttempts  int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRewrites:            2,
		PublishOnFailedGate:    true,
		PublishOnPartialAssets: true,
		RefundOnFailure:        false,
		AssetPollInterval:      5 * time.Second,
		AssetMaxAttempts:       60,
	}
}
