package reaper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opstools/snapreaper/internal/logger"
	"github.com/opstools/snapreaper/internal/models"
	"github.com/opstools/snapreaper/internal/report"
	"github.com/opstools/snapreaper/internal/retention"
)

// Reaper coordinates one cleanup run: per cluster, enumerate VMs, evaluate
// each snapshot against the retention policy, delete the expired ones, and
// mail a single consolidated report at the end.
type Reaper struct {
	Logger     *logger.Logger
	Sessions   SessionProvider
	Mail       MailSender
	Policy     retention.Policy
	Clusters   []string
	Tags       []string
	Recipients []string
	DryRun     bool

	// Clock overrides the evaluation instant for tests. Nil means time.Now.
	Clock func() time.Time
}

// ClusterResult records the outcome of one cluster so the skip-and-continue
// policy is an explicit contract rather than an artifact of error scoping.
type ClusterResult struct {
	Cluster string
	VMs     int
	Deleted int
	Failed  int
	Err     error
}

// Run executes the full cleanup: clusters strictly in order, one fully
// processed (including disconnect) before the next begins. The evaluation
// instant is captured once and shared across the whole run. Cluster and
// snapshot failures are logged and recorded in the results; the only error
// Run returns is a mail delivery failure, which happens after all
// destructive work is already done.
func (r *Reaper) Run(ctx context.Context) ([]ClusterResult, error) {
	now := r.now()
	rep := report.New(r.DryRun)

	r.Logger.Info("Starting snapshot cleanup",
		logger.Action("run"),
		logger.Status("starting"),
		logger.Count(len(r.Clusters)),
		logger.F("RETENTION_DAYS", r.Policy.Days),
		logger.F("DRY_RUN", r.DryRun))

	results := make([]ClusterResult, 0, len(r.Clusters))
	for _, cluster := range r.Clusters {
		res := r.processCluster(ctx, cluster, now, rep)
		if res.Err != nil {
			r.Logger.Error("Skipping cluster",
				logger.Cluster(cluster),
				logger.Error(res.Err))
		} else {
			r.Logger.Info("Cluster processed",
				logger.Cluster(cluster),
				logger.Count(res.VMs),
				logger.Deleted(res.Deleted),
				logger.Failed(res.Failed))
		}
		results = append(results, res)
	}

	if err := r.sendReport(rep, now); err != nil {
		return results, err
	}

	r.Logger.Info("Snapshot cleanup finished",
		logger.Action("run"),
		logger.Status("success"))
	return results, nil
}

func (r *Reaper) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// processCluster handles one cluster end to end. The session is closed on
// every exit path once it has been opened.
func (r *Reaper) processCluster(ctx context.Context, cluster string, now time.Time, rep *report.Report) (res ClusterResult) {
	res = ClusterResult{Cluster: cluster}

	sess, err := r.Sessions.Connect(ctx, cluster)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrClusterUnreachable, err)
		return res
	}
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil {
			r.Logger.Error("Failed to close cluster session",
				logger.Cluster(cluster),
				logger.Error(cerr))
		}
	}()

	vms, err := sess.ListVMs(ctx, r.Tags)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrVMEnumerationFailed, err)
		return res
	}
	res.VMs = len(vms)

	// Duplicate names keep their discovery order.
	sort.SliceStable(vms, func(i, j int) bool {
		return vms[i].Name < vms[j].Name
	})

	for _, vm := range vms {
		section, deleted, failed := r.processVM(ctx, sess, cluster, vm, now)
		res.Deleted += deleted
		res.Failed += failed
		rep.AddVM(section)
	}

	return res
}

// processVM evaluates one VM's snapshot set. Expired snapshots are reported
// and, unless dry-run, deleted one by one; a single failed deletion does not
// stop the remaining snapshots.
func (r *Reaper) processVM(ctx context.Context, sess Session, cluster string, vm models.VM, now time.Time) (report.VMSection, int, int) {
	section := report.VMSection{VM: vm.Name}

	snaps, err := sess.Snapshots(ctx, vm)
	if err != nil {
		r.Logger.Warn("Failed to list snapshots, skipping VM",
			logger.Cluster(cluster),
			logger.VM(vm.Name),
			logger.Error(err))
		return section, 0, 0
	}

	plan := r.Policy.Plan(snaps, now)

	var deleted, failed int
	for _, snap := range plan.Delete {
		age := retention.AgeDays(snap.Created, now)
		section.Snapshots = append(section.Snapshots, report.SnapshotEntry{
			Name:        snap.Name,
			Description: snap.Description,
			Created:     snap.Created,
			AgeDays:     age,
		})

		if r.DryRun {
			r.Logger.Info("Snapshot eligible for deletion (dry run)",
				logger.Cluster(cluster),
				logger.VM(vm.Name),
				logger.Snapshot(snap.Name),
				logger.AgeDays(age))
			continue
		}

		if err := sess.DeleteSnapshot(ctx, vm, snap); err != nil {
			failed++
			r.Logger.Error("Snapshot deletion failed",
				logger.Cluster(cluster),
				logger.VM(vm.Name),
				logger.Snapshot(snap.Name),
				logger.Error(fmt.Errorf("%w: %v", ErrSnapshotDeletionFailed, err)))
			continue
		}
		deleted++
		r.Logger.Info("Snapshot deleted",
			logger.Cluster(cluster),
			logger.VM(vm.Name),
			logger.Snapshot(snap.Name),
			logger.AgeDays(age))
	}

	return section, deleted, failed
}

func (r *Reaper) sendReport(rep *report.Report, now time.Time) error {
	subject := fmt.Sprintf("Snapshot cleanup report %s", now.Format("2006-01-02"))
	if r.DryRun {
		subject = "[dry run] " + subject
	}

	if err := r.Mail.Send(subject, rep.Render(), r.Recipients); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDeliveryFailed, err)
	}

	r.Logger.Info("Report sent",
		logger.Action("mail"),
		logger.Status("success"),
		logger.Count(len(r.Recipients)))
	return nil
}
