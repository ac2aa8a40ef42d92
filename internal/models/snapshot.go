package models

import "time"

// Snapshot is one point-in-time VM snapshot. Ref is the opaque platform
// identifier used for deletion; Name is not guaranteed unique within a VM.
type Snapshot struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Ref         string    `json:"ref"`
}

// VM is a handle to one virtual machine on a cluster, valid only for the
// duration of that cluster's session. Path is the inventory path and is
// unique even when names collide.
type VM struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Tags []string `json:"tags,omitempty"`
}
