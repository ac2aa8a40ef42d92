package report

import (
	"fmt"
	"strings"
	"time"
)

const (
	header  = "=========================================================="
	divider = "----------------------------------------------------------"

	dryRunBanner = "*** DRY RUN - no snapshots were deleted ***"
	emptyNotice  = "No snapshots qualified for deletion."

	timeFormat = "2006-01-02 15:04:05"
)

// SnapshotEntry is one qualifying snapshot in the report.
type SnapshotEntry struct {
	Name        string
	Description string
	Created     time.Time
	AgeDays     int
}

// VMSection groups the qualifying snapshots of a single VM.
type VMSection struct {
	VM        string
	Snapshots []SnapshotEntry
}

// Report collects per-VM sections across a run and renders the email body at
// send time. A VM appears only if at least one of its snapshots qualified.
type Report struct {
	DryRun   bool
	sections []VMSection
}

// New creates an empty report for one run.
func New(dryRun bool) *Report {
	return &Report{DryRun: dryRun}
}

// AddVM appends a VM section. Sections with no snapshots are dropped so that
// VMs without qualifying snapshots contribute nothing to the rendered body.
func (r *Report) AddVM(section VMSection) {
	if len(section.Snapshots) == 0 {
		return
	}
	r.sections = append(r.sections, section)
}

// Sections returns the accumulated per-VM sections in append order.
func (r *Report) Sections() []VMSection {
	return r.sections
}

// Empty reports whether no VM contributed anything.
func (r *Report) Empty() bool {
	return len(r.sections) == 0
}

// Render produces the plain-text email body. Output is deterministic for a
// fixed set of sections.
func (r *Report) Render() string {
	var b strings.Builder

	if r.DryRun {
		b.WriteString(dryRunBanner)
		b.WriteString("\n\n")
	}

	if len(r.sections) == 0 {
		b.WriteString(emptyNotice)
		b.WriteString("\n")
		return b.String()
	}

	for _, section := range r.sections {
		b.WriteString(header)
		b.WriteString("\n")
		fmt.Fprintf(&b, "VM: %s\n", section.VM)
		for _, snap := range section.Snapshots {
			b.WriteString(divider)
			b.WriteString("\n")
			fmt.Fprintf(&b, "Snapshot:    %s\n", snap.Name)
			fmt.Fprintf(&b, "Description: %s\n", snap.Description)
			fmt.Fprintf(&b, "Created:     %s\n", snap.Created.Format(timeFormat))
			fmt.Fprintf(&b, "Age:         %d days\n", snap.AgeDays)
		}
		b.WriteString(divider)
		b.WriteString("\n\n")
	}

	return b.String()
}
