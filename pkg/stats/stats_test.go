/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
)

type fakeScheduler struct {
	nodes  []nomad.Node
	allocs map[string][]nomad.Allocation
	fail   bool
}

func (f *fakeScheduler) ListNodes(ctx context.Context) ([]nomad.Node, error) {
	if f.fail {
		return nil, errors.NewBackendError("scheduler unreachable")
	}
	return f.nodes, nil
}

func (f *fakeScheduler) ListNodeAllocations(ctx context.Context, nodeID string) ([]nomad.Allocation, error) {
	return f.allocs[nodeID], nil
}

func gpuNode(id string, model string, count int) nomad.Node {
	instances := make([]nomad.NodeDeviceInstance, count)
	for i := range instances {
		instances[i] = nomad.NodeDeviceInstance{ID: fmt.Sprintf("gpu-%d", i), Healthy: true}
	}
	return nomad.Node{
		ID:                    id,
		Name:                  id,
		Status:                nomad.NodeStatusReady,
		SchedulingEligibility: nomad.NodeEligible,
		NodeResources: &nomad.NodeResources{
			Cpu:    nomad.NodeCPU{CpuShares: 32000},
			Memory: nomad.NodeMemory{MemoryMB: 128000},
			Devices: []nomad.NodeDevice{
				{Type: "gpu", Vendor: "nvidia", Name: model, Instances: instances},
			},
		},
	}
}

func runningAlloc(namespace string, cpu, ramMB int64, gpuModel string, gpus int) nomad.Allocation {
	task := nomad.AllocatedTask{}
	task.Cpu.CpuShares = cpu
	task.Memory.MemoryMB = ramMB
	if gpus > 0 {
		ids := make([]string, gpus)
		for i := range ids {
			ids[i] = fmt.Sprintf("gpu-%d", i)
		}
		task.Devices = []nomad.AllocatedDevice{{Type: "gpu", Name: gpuModel, DeviceIDs: ids}}
	}
	return nomad.Allocation{
		Namespace:          namespace,
		ClientStatus:       nomad.AllocStatusRunning,
		AllocatedResources: &nomad.AllocatedResources{Tasks: map[string]nomad.AllocatedTask{"main": task}},
	}
}

func TestPollAggregates(t *testing.T) {
	sched := &fakeScheduler{
		nodes: []nomad.Node{gpuNode("n1", "A100", 4), gpuNode("n2", "T4", 2)},
		allocs: map[string][]nomad.Allocation{
			"n1": {
				runningAlloc("ai4eosc", 4000, 16000, "A100", 1),
				runningAlloc("imagine", 2000, 8000, "", 0),
				{ClientStatus: nomad.AllocStatusComplete, Namespace: "ai4eosc"}, // finished, not counted
			},
			"n2": {runningAlloc("ai4eosc", 1000, 4000, "T4", 2)},
		},
	}
	p := NewPoller(sched)
	p.Poll(context.Background())

	snap := p.Current()
	require.NotNil(t, snap)
	assert.Equal(t, int64(64000), snap.CPUTotal)
	assert.Equal(t, int64(7000), snap.CPUUsed)
	assert.Equal(t, GPUCount{Total: 4, Used: 1}, snap.GPUPerModel["A100"])
	assert.Equal(t, GPUCount{Total: 2, Used: 2}, snap.GPUPerModel["T4"])

	assert.Equal(t, Usage{CPU: 5000, MemoryMB: 20000, GPU: 3, Allocs: 2}, snap.PerNamespace["ai4eosc"])
	assert.Equal(t, Usage{CPU: 2000, MemoryMB: 8000, GPU: 0, Allocs: 1}, snap.PerNamespace["imagine"])
}

func TestCapacityCountsOnlySchedulableNodes(t *testing.T) {
	ready := gpuNode("n1", "A100", 4)
	drained := gpuNode("n2", "A100", 4)
	drained.SchedulingEligibility = nomad.NodeIneligible
	down := gpuNode("n3", "A100", 4)
	down.Status = nomad.NodeStatusDown

	sched := &fakeScheduler{nodes: []nomad.Node{ready, drained, down}}
	p := NewPoller(sched)
	p.Poll(context.Background())

	// drained and down nodes stay visible per node but add no capacity
	snap := p.Current()
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, int64(32000), snap.CPUTotal)
	assert.Equal(t, int64(128000), snap.RAMTotalMB)
	assert.Equal(t, GPUCount{Total: 4, Used: 0}, snap.GPUPerModel["A100"])
	assert.Equal(t, int64(32000), snap.Nodes[1].CPUTotal)
}

func TestFailedPollKeepsLastGood(t *testing.T) {
	sched := &fakeScheduler{nodes: []nomad.Node{gpuNode("n1", "A100", 4)}}
	p := NewPoller(sched)
	p.Poll(context.Background())
	first := p.Current()
	require.NotNil(t, first)

	sched.fail = true
	p.Poll(context.Background())
	assert.Same(t, first, p.Current())
}

func TestNodeStatusProjection(t *testing.T) {
	down := gpuNode("n1", "A100", 1)
	down.Status = nomad.NodeStatusDown
	drained := gpuNode("n2", "A100", 1)
	drained.SchedulingEligibility = nomad.NodeIneligible
	flapping := gpuNode("n3", "A100", 1)

	sched := &fakeScheduler{
		nodes: []nomad.Node{down, drained, flapping},
		allocs: map[string][]nomad.Allocation{
			"n3": {{
				ClientStatus: nomad.AllocStatusRunning,
				RescheduleTracker: &nomad.RescheduleTracker{
					Events: []nomad.RescheduleEvent{{PrevAllocID: "old"}},
				},
			}},
		},
	}
	p := NewPoller(sched)
	p.Poll(context.Background())

	snap := p.Current()
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, NodeDown, snap.Nodes[0].Status)
	assert.Equal(t, NodeIneligible, snap.Nodes[1].Status)
	assert.Equal(t, NodeRescheduling, snap.Nodes[2].Status)
	assert.Equal(t, 1, snap.Nodes[2].Rescheduled)
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestHistoricalAggregates(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ai4eosc-full-agg.csv",
		"cpu_num,gpu_num,memoryMB\n120,14,480000\n")
	writeCSV(t, dir, "ai4eosc-users-agg.csv",
		"owner,cpu_num,gpu_num\nalice@x,40,2\nbob@x,80,12\n")

	now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	h := newHistorical(dir, now)

	agg, err := h.ClusterAggregate("ai4eosc")
	require.NoError(t, err)
	assert.Equal(t, "14", agg["gpu_num"])

	user, err := h.UserAggregate("ai4eosc", "alice@x")
	require.NoError(t, err)
	assert.Equal(t, "40", user["cpu_num"])

	// unknown users get an empty row, not an error
	user, err = h.UserAggregate("ai4eosc", "carol@x")
	require.NoError(t, err)
	assert.Equal(t, "carol@x", user["owner"])
	assert.Empty(t, user["cpu_num"])
}

func TestTimeseriesWindow(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ai4eosc-timeseries.csv",
		"date,cpu_num\n2025-01-01,10\n2025-05-20,20\n2025-05-30,30\nnot-a-date,40\n")

	now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	h := newHistorical(dir, now)

	rows, err := h.Timeseries("ai4eosc")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-05-20", rows[0]["date"])
	assert.Equal(t, "30", rows[1]["cpu_num"])
}

func TestHistoricalMissingFile(t *testing.T) {
	h := newHistorical(t.TempDir(), time.Now)
	_, err := h.ClusterAggregate("nowhere")
	assert.True(t, errors.IsNotFound(err))
}
