package loadgen

import "time"

// Defaults applied by Config.Validate.
const (
	DefaultWorkers = 8
	DefaultTimeout = 30 * time.Second
)

// Submission outcomes.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

const (
	workerChannelMultiplier = 2
	progressInterval        = time.Second
)
