package vsphere

import (
	"context"
	"fmt"
	"net/url"

	"github.com/opstools/snapreaper/internal/config"
	"github.com/opstools/snapreaper/internal/logger"
	"github.com/opstools/snapreaper/internal/models"
	"github.com/opstools/snapreaper/internal/reaper"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

// Provider opens govmomi sessions to clusters using the shared credentials
// from the run configuration. It implements reaper.SessionProvider.
type Provider struct {
	cfg *config.Config
	log *logger.Logger
}

// NewProvider creates a session provider for the run.
func NewProvider(cfg *config.Config, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.New()
	}
	return &Provider{cfg: cfg, log: log}
}

// Connect opens a SOAP session to the given cluster endpoint and resolves
// its default datacenter.
func (p *Provider) Connect(ctx context.Context, cluster string) (reaper.Session, error) {
	u, err := soap.ParseURL(cluster)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	u.User = url.UserPassword(p.cfg.VCenterUsername, p.cfg.VCenterPassword)

	client, err := govmomi.NewClient(ctx, u, p.cfg.VCenterInsecure)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	finder := find.NewFinder(client.Client, true)
	dc, err := finder.DefaultDatacenter(ctx)
	if err != nil {
		_ = client.Logout(ctx)
		return nil, fmt.Errorf("failed to get datacenter: %w", err)
	}
	finder.SetDatacenter(dc)

	return &Session{
		cluster: cluster,
		client:  client,
		finder:  finder,
		creds:   u.User,
		logger:  p.log,
		vms:     make(map[string]*object.VirtualMachine),
	}, nil
}

// Session is one open connection to a cluster. VM handles returned by ListVMs
// stay valid until Close.
type Session struct {
	cluster string
	client  *govmomi.Client
	finder  *find.Finder
	creds   *url.Userinfo
	logger  *logger.Logger

	rest *rest.Client
	vms  map[string]*object.VirtualMachine
}

// ListVMs enumerates VMs on the cluster. When tagFilter is non-empty, only
// VMs carrying at least one of the requested tags are returned; tag lookup
// goes through the vAPI endpoint.
func (s *Session) ListVMs(ctx context.Context, tagFilter []string) ([]models.VM, error) {
	vms, err := s.finder.VirtualMachineList(ctx, "*")
	if err != nil {
		if _, ok := err.(*find.NotFoundError); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list virtual machines: %w", err)
	}

	var vmList []models.VM
	for _, vm := range vms {
		handle := models.VM{
			Name: vm.Name(),
			Path: vm.InventoryPath,
		}
		s.vms[handle.Path] = vm
		vmList = append(vmList, handle)
	}

	if len(tagFilter) == 0 {
		return vmList, nil
	}

	tagMgr, err := s.tagManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tag lookup: %w", err)
	}
	return filterByTags(vmList, tagFilter, func(path string) ([]string, error) {
		attached, err := tagMgr.GetAttachedTags(ctx, s.vms[path].Reference())
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(attached))
		for _, tag := range attached {
			names = append(names, tag.Name)
		}
		return names, nil
	})
}

// filterByTags keeps the VMs carrying at least one wanted tag. A lookup
// failure fails the whole enumeration so a broken vAPI session does not pass
// for an empty tag match.
func filterByTags(vms []models.VM, wanted []string, lookup func(path string) ([]string, error)) ([]models.VM, error) {
	var out []models.VM
	for _, vm := range vms {
		vmTags, err := lookup(vm.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to get tags for %s: %w", vm.Name, err)
		}
		vm.Tags = vmTags
		if hasAnyTag(vmTags, wanted) {
			out = append(out, vm)
		}
	}
	return out, nil
}

// Snapshots returns the VM's snapshot tree flattened to a list, preserving
// discovery order.
func (s *Session) Snapshots(ctx context.Context, vm models.VM) ([]models.Snapshot, error) {
	handle, ok := s.vms[vm.Path]
	if !ok {
		return nil, fmt.Errorf("unknown VM handle: %s", vm.Path)
	}

	var mvm mo.VirtualMachine
	if err := handle.Properties(ctx, handle.Reference(), []string{"snapshot"}, &mvm); err != nil {
		return nil, fmt.Errorf("failed to get VM properties: %w", err)
	}
	if mvm.Snapshot == nil {
		return nil, nil
	}
	return flattenSnapshots(mvm.Snapshot.RootSnapshotList), nil
}

// DeleteSnapshot removes a single snapshot by reference, leaving children in
// place, and waits for the task to finish.
func (s *Session) DeleteSnapshot(ctx context.Context, vm models.VM, snap models.Snapshot) error {
	if _, ok := s.vms[vm.Path]; !ok {
		return fmt.Errorf("unknown VM handle: %s", vm.Path)
	}

	req := types.RemoveSnapshot_Task{
		This: types.ManagedObjectReference{
			Type:  "VirtualMachineSnapshot",
			Value: snap.Ref,
		},
		RemoveChildren: false,
		Consolidate:    types.NewBool(true),
	}

	res, err := methods.RemoveSnapshot_Task(ctx, s.client.Client, &req)
	if err != nil {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}

	task := object.NewTask(s.client.Client, res.Returnval)
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("remove snapshot task failed: %w", err)
	}
	return nil
}

// Close logs out of the vAPI session (if one was opened) and the SOAP session.
func (s *Session) Close(ctx context.Context) error {
	if s.rest != nil {
		if err := s.rest.Logout(ctx); err != nil {
			s.logger.Warn("Failed to log out of vAPI session",
				logger.Cluster(s.cluster),
				logger.Error(err))
		}
		s.rest = nil
	}
	if s.client == nil {
		return nil
	}
	return s.client.Logout(ctx)
}

// tagManager lazily opens the vAPI session used for tag lookups.
func (s *Session) tagManager(ctx context.Context) (*tags.Manager, error) {
	if s.rest == nil {
		rc := rest.NewClient(s.client.Client)
		if err := rc.Login(ctx, s.creds); err != nil {
			return nil, fmt.Errorf("vAPI login failed: %w", err)
		}
		s.rest = rc
	}
	return tags.NewManager(s.rest), nil
}

// flattenSnapshots walks the snapshot tree depth-first into a flat list.
// Retention treats snapshots as a flat set; the hierarchy is irrelevant here.
func flattenSnapshots(tree []types.VirtualMachineSnapshotTree) []models.Snapshot {
	var result []models.Snapshot
	for _, snapshot := range tree {
		result = append(result, models.Snapshot{
			Name:        snapshot.Name,
			Description: snapshot.Description,
			Created:     snapshot.CreateTime,
			Ref:         snapshot.Snapshot.Value,
		})
		if len(snapshot.ChildSnapshotList) > 0 {
			result = append(result, flattenSnapshots(snapshot.ChildSnapshotList)...)
		}
	}
	return result
}

// hasAnyTag reports whether the VM carries at least one of the wanted tags.
func hasAnyTag(vmTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range vmTags {
			if t == w {
				return true
			}
		}
	}
	return false
}
