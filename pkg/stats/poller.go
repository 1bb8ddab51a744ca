/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package stats aggregates cluster occupation. Live numbers come from a
// periodic Scheduler poll; historical numbers come from the accounting CSV
// exports. Handlers only ever read an immutable snapshot, so a slow or
// failing poll never blocks a request.
package stats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/nomad"
)

// Scheduler is the slice of the Scheduler client the poller needs.
type Scheduler interface {
	ListNodes(ctx context.Context) ([]nomad.Node, error)
	ListNodeAllocations(ctx context.Context, nodeID string) ([]nomad.Allocation, error)
}

// GPUCount pairs installed and allocated GPUs of one model.
type GPUCount struct {
	Total int `json:"total"`
	Used  int `json:"used"`
}

// NodeView is one node's projection into the stats snapshot.
type NodeView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Status      string              `json:"status"`
	Pool        string              `json:"pool"`
	CPUTotal    int64               `json:"cpu_total"`
	CPUUsed     int64               `json:"cpu_used"`
	RAMTotalMB  int64               `json:"ram_total_MB"`
	RAMUsedMB   int64               `json:"ram_used_MB"`
	DiskTotalMB int64               `json:"disk_total_MB"`
	GPUModels   map[string]GPUCount `json:"gpu_models,omitempty"`
	Rescheduled int                 `json:"rescheduled_allocs"`
}

// node statuses as the snapshot reports them
const (
	NodeReady        = "ready"
	NodeIneligible   = "ineligible"
	NodeDown         = "down"
	NodeRescheduling = "rescheduling"
)

// Usage is an aggregate over one namespace.
type Usage struct {
	CPU      int64 `json:"cpu"`
	MemoryMB int64 `json:"memory_MB"`
	GPU      int   `json:"gpu"`
	Allocs   int   `json:"allocations"`
}

// Snapshot is one complete poll result. It is immutable once published.
type Snapshot struct {
	PolledAt     time.Time           `json:"polled_at"`
	Nodes        []NodeView          `json:"nodes"`
	CPUTotal     int64               `json:"cpu_total"`
	CPUUsed      int64               `json:"cpu_used"`
	RAMTotalMB   int64               `json:"ram_total_MB"`
	RAMUsedMB    int64               `json:"ram_used_MB"`
	GPUPerModel  map[string]GPUCount `json:"gpu_per_model"`
	PerNamespace map[string]Usage    `json:"namespaces"`
}

type Poller struct {
	scheduler Scheduler
	current   atomic.Pointer[Snapshot]
	cron      *cron.Cron
	now       func() time.Time
}

func NewPoller(scheduler Scheduler) *Poller {
	return &Poller{scheduler: scheduler, now: time.Now}
}

// Start polls once synchronously, then keeps polling on the configured
// schedule until the context is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.Poll(ctx)
	p.cron = cron.New()
	if _, err := p.cron.AddFunc(config.GetStatsPollInterval(), func() { p.Poll(ctx) }); err != nil {
		return err
	}
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()
	return nil
}

// Current returns the last good snapshot, or nil when no poll has ever
// succeeded.
func (p *Poller) Current() *Snapshot {
	return p.current.Load()
}

// Poll gathers one snapshot. On failure the previous snapshot stays
// published.
func (p *Poller) Poll(ctx context.Context) {
	snapshot, err := p.collect(ctx)
	if err != nil {
		klog.Warningf("stats poll failed, keeping previous snapshot: %v", err)
		return
	}
	p.current.Store(snapshot)
}

func (p *Poller) collect(ctx context.Context) (*Snapshot, error) {
	nodes, err := p.scheduler.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{
		PolledAt:     p.now(),
		GPUPerModel:  map[string]GPUCount{},
		PerNamespace: map[string]Usage{},
	}
	for i := range nodes {
		view, err := p.projectNode(ctx, &nodes[i], snapshot)
		if err != nil {
			return nil, err
		}
		snapshot.Nodes = append(snapshot.Nodes, *view)
		// down and drained nodes keep their per-node view but never count
		// towards cluster capacity
		if view.Status == NodeDown || view.Status == NodeIneligible {
			continue
		}
		snapshot.CPUTotal += view.CPUTotal
		snapshot.CPUUsed += view.CPUUsed
		snapshot.RAMTotalMB += view.RAMTotalMB
		snapshot.RAMUsedMB += view.RAMUsedMB
		for model, count := range view.GPUModels {
			agg := snapshot.GPUPerModel[model]
			agg.Total += count.Total
			agg.Used += count.Used
			snapshot.GPUPerModel[model] = agg
		}
	}
	return snapshot, nil
}

func (p *Poller) projectNode(ctx context.Context, node *nomad.Node, snapshot *Snapshot) (*NodeView, error) {
	view := &NodeView{
		ID:        node.ID,
		Name:      node.Name,
		Status:    nodeStatus(node),
		Pool:      nodePool(node),
		GPUModels: map[string]GPUCount{},
	}
	if res := node.NodeResources; res != nil {
		view.CPUTotal = res.Cpu.CpuShares
		view.RAMTotalMB = res.Memory.MemoryMB
		view.DiskTotalMB = res.Disk.DiskMB
		for _, dev := range res.Devices {
			if dev.Type != "gpu" {
				continue
			}
			count := view.GPUModels[dev.Name]
			count.Total += len(dev.Instances)
			view.GPUModels[dev.Name] = count
		}
	}

	allocs, err := p.scheduler.ListNodeAllocations(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	for i := range allocs {
		alloc := &allocs[i]
		if alloc.RescheduleTracker != nil && len(alloc.RescheduleTracker.Events) > 0 {
			view.Rescheduled++
		}
		if alloc.ClientStatus != nomad.AllocStatusRunning {
			continue
		}
		usage := snapshot.PerNamespace[alloc.Namespace]
		usage.Allocs++
		if alloc.AllocatedResources != nil {
			for _, task := range alloc.AllocatedResources.Tasks {
				view.CPUUsed += task.Cpu.CpuShares
				view.RAMUsedMB += task.Memory.MemoryMB
				usage.CPU += task.Cpu.CpuShares
				usage.MemoryMB += task.Memory.MemoryMB
				for _, dev := range task.Devices {
					if dev.Type != "gpu" {
						continue
					}
					count := view.GPUModels[dev.Name]
					count.Used += len(dev.DeviceIDs)
					view.GPUModels[dev.Name] = count
					usage.GPU += len(dev.DeviceIDs)
				}
			}
		}
		snapshot.PerNamespace[alloc.Namespace] = usage
	}
	if view.Rescheduled > 0 && view.Status == NodeReady {
		view.Status = NodeRescheduling
	}
	return view, nil
}

func nodeStatus(node *nomad.Node) string {
	switch {
	case node.Status == nomad.NodeStatusDown:
		return NodeDown
	case node.SchedulingEligibility == nomad.NodeIneligible:
		return NodeIneligible
	default:
		return NodeReady
	}
}

func nodePool(node *nomad.Node) string {
	if pool := node.Meta["namespace"]; pool != "" {
		return pool
	}
	if pool := node.Meta["pool"]; pool != "" {
		return pool
	}
	return "default"
}
