package retention

import (
	"time"

	"github.com/opstools/snapreaper/internal/models"
)

// Policy is the snapshot age threshold for a run. Days is the minimum age in
// whole days for a snapshot to be eligible for deletion. Zero deletes
// everything and is allowed, so double-check the configuration before
// pointing this at production clusters.
type Policy struct {
	Days int
}

// Cutoff returns the instant before which snapshots are eligible.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(p.Days) * 24 * time.Hour)
}

// Expired reports whether a snapshot created at the given time has reached
// the retention threshold. A snapshot exactly at the cutoff qualifies.
func (p Policy) Expired(created, now time.Time) bool {
	return !created.After(p.Cutoff(now))
}

// AgeDays returns the snapshot age in whole days, rounded down.
func AgeDays(created, now time.Time) int {
	if now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}

// PrunePlan partitions a VM's snapshots into the ones to keep and the ones
// eligible for deletion. Order within each side follows the input.
type PrunePlan struct {
	Keep   []models.Snapshot
	Delete []models.Snapshot
}

// Plan evaluates a flat snapshot set against the policy at the given instant.
func (p Policy) Plan(snapshots []models.Snapshot, now time.Time) PrunePlan {
	var plan PrunePlan
	for _, snap := range snapshots {
		if p.Expired(snap.Created, now) {
			plan.Delete = append(plan.Delete, snap)
		} else {
			plan.Keep = append(plan.Keep, snap)
		}
	}
	return plan
}
