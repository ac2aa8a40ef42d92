package reaper

import "errors"

// Sentinel errors for the run's failure taxonomy. Invalid configuration
// aborts before any cluster is contacted. Cluster and snapshot level
// failures are recorded and logged but never abort the run; only mail
// delivery failure surfaces from Run.
var (
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrClusterUnreachable     = errors.New("cluster unreachable")
	ErrVMEnumerationFailed    = errors.New("vm enumeration failed")
	ErrSnapshotDeletionFailed = errors.New("snapshot deletion failed")
	ErrMailDeliveryFailed     = errors.New("mail delivery failed")
)
