/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
)

type fakeScheduler struct {
	jobs map[string]*nomad.Job
}

func (f *fakeScheduler) ListJobs(ctx context.Context, namespace, owner, prefix string) ([]nomad.JobStub, error) {
	var stubs []nomad.JobStub
	for id, job := range f.jobs {
		if job.Meta[nomad.MetaOwner] == owner {
			stubs = append(stubs, nomad.JobStub{ID: id, Meta: job.Meta})
		}
	}
	return stubs, nil
}

func (f *fakeScheduler) GetJob(ctx context.Context, namespace, id string) (*nomad.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.NewWorkloadNotFound(id)
	}
	return job, nil
}

func jobWith(owner string, cpu, gpu, ram, disk int) *nomad.Job {
	res := &nomad.Resources{Cores: cpu, MemoryMB: ram, DiskMB: disk}
	if gpu > 0 {
		res.Devices = []nomad.Device{{Name: "gpu", Count: gpu}}
	}
	return &nomad.Job{
		Meta:       map[string]string{nomad.MetaOwner: owner},
		TaskGroups: []nomad.TaskGroup{{Tasks: []nomad.Task{{Name: "main", Resources: res}}}},
	}
}

func setupConfig(t *testing.T) {
	t.Helper()
	config.SetValue("nomad.namespaces", map[string]string{"vo.ai4eosc.eu": "ai4eosc"})
	config.SetValue("quotas.gpu_per_user", 1)
	config.SetValue("quotas.cpu_per_user", 8)
	config.SetValue("quotas.ram_per_user", 16000)
	config.SetValue("quotas.disk_per_user", 50000)
	config.SetValue("quotas.deployments_per_user", 2)
}

func TestUsageSumsLiveJobs(t *testing.T) {
	setupConfig(t)
	sched := &fakeScheduler{jobs: map[string]*nomad.Job{
		"j1": jobWith("alice@x", 2, 1, 4000, 10000),
		"j2": jobWith("alice@x", 2, 0, 4000, 10000),
		"j3": jobWith("bob@x", 8, 2, 32000, 90000),
	}}
	ledger := NewLedger(sched)

	usage, err := ledger.Usage(context.Background(), "alice@x", "vo.ai4eosc.eu")
	require.NoError(t, err)
	assert.Equal(t, &Snapshot{CPU: 4, GPU: 1, MemoryMB: 8000, DiskMB: 20000, Deployments: 2}, usage)
}

func TestCheckReportsFirstOverflowInFixedOrder(t *testing.T) {
	setupConfig(t)
	sched := &fakeScheduler{jobs: map[string]*nomad.Job{
		"j1": jobWith("alice@x", 4, 1, 8000, 20000),
	}}
	ledger := NewLedger(sched)
	ctx := context.Background()

	// both GPU and CPU overflow; GPU is reported
	err := ledger.Check(ctx, "alice@x", "vo.ai4eosc.eu", Request{CPU: 8, GPU: 1, MemoryMB: 1000, DiskMB: 1000})
	require.Error(t, err)
	assert.True(t, errors.IsQuotaExceeded(err))
	assert.Contains(t, err.Error(), `"resource":"GPU","limit":1,"current":1`)

	// CPU alone overflows
	err = ledger.Check(ctx, "alice@x", "vo.ai4eosc.eu", Request{CPU: 8})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"resource":"CPU"`)
}

func TestCheckPassesWithinCaps(t *testing.T) {
	setupConfig(t)
	sched := &fakeScheduler{jobs: map[string]*nomad.Job{
		"j1": jobWith("alice@x", 2, 0, 4000, 10000),
	}}
	ledger := NewLedger(sched)

	err := ledger.Check(context.Background(), "alice@x", "vo.ai4eosc.eu",
		Request{CPU: 4, GPU: 1, MemoryMB: 8000, DiskMB: 10000})
	assert.NoError(t, err)
}

// P7: if a request passes, any componentwise smaller request passes too.
func TestCheckIsMonotonic(t *testing.T) {
	setupConfig(t)
	sched := &fakeScheduler{jobs: map[string]*nomad.Job{
		"j1": jobWith("alice@x", 2, 0, 4000, 10000),
	}}
	ledger := NewLedger(sched)
	ctx := context.Background()

	larger := Request{CPU: 4, GPU: 1, MemoryMB: 8000, DiskMB: 10000}
	require.NoError(t, ledger.Check(ctx, "alice@x", "vo.ai4eosc.eu", larger))
	smaller := Request{CPU: 1, GPU: 0, MemoryMB: 2000, DiskMB: 1000}
	assert.NoError(t, ledger.Check(ctx, "alice@x", "vo.ai4eosc.eu", smaller))
}

func TestCheckDeploymentCountCap(t *testing.T) {
	setupConfig(t)
	sched := &fakeScheduler{jobs: map[string]*nomad.Job{
		"j1": jobWith("alice@x", 1, 0, 2000, 1000),
		"j2": jobWith("alice@x", 1, 0, 2000, 1000),
	}}
	ledger := NewLedger(sched)

	err := ledger.Check(context.Background(), "alice@x", "vo.ai4eosc.eu", Request{CPU: 1, MemoryMB: 2000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"resource":"deployments"`)
}

func TestUsageUnknownVO(t *testing.T) {
	setupConfig(t)
	ledger := NewLedger(&fakeScheduler{})
	_, err := ledger.Usage(context.Background(), "alice@x", "vo.unknown")
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}
