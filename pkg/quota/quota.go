/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package quota decides admission. The ledger holds no state of its own:
// every check re-reads the caller's live jobs from the Scheduler, which
// makes it resilient to restarts at the cost of a documented TOCTOU window
// between concurrent submissions.
package quota

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
)

// Scheduler is the slice of the Scheduler client the ledger needs.
type Scheduler interface {
	ListJobs(ctx context.Context, namespace, owner, prefix string) ([]nomad.JobStub, error)
	GetJob(ctx context.Context, namespace, id string) (*nomad.Job, error)
}

// Request is the resource footprint of a submission under admission.
type Request struct {
	CPU      int `json:"cpu"`
	GPU      int `json:"gpu"`
	MemoryMB int `json:"memory_MB"`
	DiskMB   int `json:"disk_MB"`
}

// Snapshot is a user's current consumption in a VO, summed over live
// deployments.
type Snapshot struct {
	CPU         int `json:"cpu"`
	GPU         int `json:"gpu"`
	MemoryMB    int `json:"memory_MB"`
	DiskMB      int `json:"disk_MB"`
	Deployments int `json:"deployments"`
}

type Ledger struct {
	scheduler Scheduler
	jobPrefix string
}

func NewLedger(scheduler Scheduler) *Ledger {
	return &Ledger{
		scheduler: scheduler,
		jobPrefix: config.GetJobPrefix(),
	}
}

// Usage computes a user's current consumption from the Scheduler's live
// jobs in the VO's namespace.
func (l *Ledger) Usage(ctx context.Context, owner, vo string) (*Snapshot, error) {
	namespace := config.GetNamespace(vo)
	if namespace == "" {
		return nil, errors.NewBadRequest("VO has no namespace mapping: " + vo)
	}
	stubs, err := l.scheduler.ListJobs(ctx, namespace, owner, l.jobPrefix)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{Deployments: len(stubs)}
	for _, stub := range stubs {
		job, err := l.scheduler.GetJob(ctx, namespace, stub.ID)
		if err != nil {
			// a job may die between list and read; skip it rather than
			// blocking the user's admission on a race
			klog.Warningf("quota usage: failed to read job %s: %v", stub.ID, err)
			snapshot.Deployments--
			continue
		}
		cpu, mem, disk := nomad.ResourceTotals(job)
		gpus, _ := nomad.GPURequest(job)
		snapshot.CPU += cpu
		snapshot.MemoryMB += mem
		snapshot.DiskMB += disk
		snapshot.GPU += gpus
	}
	return snapshot, nil
}

// Check admits or rejects a request. When several resources overflow, the
// first in this fixed order is reported: GPU, CPU, RAM, disk, deployment
// count. Passing for a request implies passing for any componentwise
// smaller one.
func (l *Ledger) Check(ctx context.Context, owner, vo string, req Request) error {
	usage, err := l.Usage(ctx, owner, vo)
	if err != nil {
		return err
	}
	type check struct {
		resource  string
		limit     int
		current   int
		requested int
	}
	checks := []check{
		{"GPU", config.GetGPUPerUser(vo), usage.GPU, req.GPU},
		{"CPU", config.GetCPUPerUser(vo), usage.CPU, req.CPU},
		{"RAM", config.GetRAMPerUser(vo), usage.MemoryMB, req.MemoryMB},
		{"disk", config.GetDiskPerUser(vo), usage.DiskMB, req.DiskMB},
		{"deployments", config.GetDeploymentsPerUser(vo), usage.Deployments, 1},
	}
	for _, c := range checks {
		if c.limit <= 0 {
			continue
		}
		if c.current+c.requested > c.limit {
			return errors.NewQuotaExceeded(c.resource, c.limit, c.current)
		}
	}
	return nil
}
