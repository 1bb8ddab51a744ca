/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package snapshot_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/registry"
)

type fakeScheduler struct {
	jobs      map[string]*nomad.Job
	allocs    map[string][]nomad.Allocation
	parsedHCL string
	submitted *nomad.Job
}

func (f *fakeScheduler) ListJobs(ctx context.Context, namespace, owner, prefix string) ([]nomad.JobStub, error) {
	var stubs []nomad.JobStub
	for id, job := range f.jobs {
		if job.Meta[nomad.MetaOwner] == owner && len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			stubs = append(stubs, nomad.JobStub{ID: id, Meta: job.Meta, SubmitTime: job.SubmitTime})
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

func (f *fakeScheduler) GetAllocations(ctx context.Context, namespace, id string) ([]nomad.Allocation, error) {
	return f.allocs[id], nil
}

func (f *fakeScheduler) ParseJob(ctx context.Context, hcl string) (*nomad.Job, error) {
	f.parsedHCL = hcl
	return &nomad.Job{ID: "parsed", Type: nomad.JobTypeBatch}, nil
}

func (f *fakeScheduler) SubmitJob(ctx context.Context, job *nomad.Job) error {
	f.submitted = job
	return nil
}

type fakeRegistry struct {
	snapshots []registry.Snapshot
	quotaErr  error
	deleted   []string
}

func (f *fakeRegistry) ListSnapshots(ctx context.Context, subject string) ([]registry.Snapshot, error) {
	return f.snapshots, nil
}

func (f *fakeRegistry) DeleteSnapshot(ctx context.Context, subject, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRegistry) CheckQuota(ctx context.Context, subject string) error {
	return f.quotaErr
}

func (f *fakeRegistry) ImageRef(subject, id string) string {
	return "registry.example.org/user-snapshots/alice_at_x:" + id
}

func setupConfig(t *testing.T) {
	t.Helper()
	config.SetValue("nomad.namespaces", map[string]string{"vo.ai4eosc.eu": "ai4eosc"})
	config.SetValue("harbor.endpoint", "https://registry.example.org")
}

func testContext(t *testing.T, method, target string, body interface{}) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest(method, target, &buf)
	auth.SetUserInfo(c, &auth.UserInfo{Subject: "alice@x", Name: "Alice", VOs: []string{"vo.ai4eosc.eu"}})
	return c
}

func runningDeployment() (*fakeScheduler, *Handler, *fakeRegistry) {
	sched := &fakeScheduler{
		jobs: map[string]*nomad.Job{
			"userjob-123": {
				ID:     "userjob-123",
				Status: nomad.JobStatusRunning,
				Meta:   map[string]string{nomad.MetaOwner: "alice@x"},
			},
		},
		allocs: map[string][]nomad.Allocation{
			"userjob-123": {{ClientStatus: nomad.AllocStatusRunning, NodeID: "node-7"}},
		},
	}
	reg := &fakeRegistry{}
	h := NewHandler(sched, reg)
	h.now = func() time.Time { return time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC) }
	return sched, h, reg
}

func TestCreateSnapshot(t *testing.T) {
	setupConfig(t)
	sched, h, _ := runningDeployment()

	c := testContext(t, "POST", "/v1/snapshots?vo=vo.ai4eosc.eu",
		CreateRequest{DeploymentUUID: "userjob-123", Title: "trained model"})
	out, err := h.create(c)
	require.NoError(t, err)

	result := out.(gin.H)
	assert.Equal(t, "userjob-123_2025-06-01_08-30-00", result["snapshot_ID"])

	// the job is pinned to the deployment's node
	assert.Contains(t, sched.parsedHCL, `value     = "node-7"`)
	assert.Contains(t, sched.parsedHCL, "user-snapshots/alice_at_x:userjob-123_2025-06-01_08-30-00")
	// the node constraint expression survives for the Scheduler
	assert.Contains(t, sched.parsedHCL, "${node.unique.id}")
	require.NotNil(t, sched.submitted)
	assert.Equal(t, "alice@x", sched.submitted.Meta[nomad.MetaOwner])
}

func TestCreateNeedsRunningDeployment(t *testing.T) {
	setupConfig(t)
	sched, h, _ := runningDeployment()
	sched.allocs["userjob-123"] = []nomad.Allocation{{ClientStatus: nomad.AllocStatusComplete}}

	c := testContext(t, "POST", "/v1/snapshots?vo=vo.ai4eosc.eu",
		CreateRequest{DeploymentUUID: "userjob-123"})
	_, err := h.create(c)
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}

func TestCreateForeignDeployment(t *testing.T) {
	setupConfig(t)
	sched, h, _ := runningDeployment()
	sched.jobs["userjob-123"].Meta[nomad.MetaOwner] = "bob@x"

	c := testContext(t, "POST", "/v1/snapshots?vo=vo.ai4eosc.eu",
		CreateRequest{DeploymentUUID: "userjob-123"})
	_, err := h.create(c)
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))
}

func TestCreateOverQuota(t *testing.T) {
	setupConfig(t)
	_, h, reg := runningDeployment()
	reg.quotaErr = errors.NewQuotaExceeded("snapshot storage", 15, 16)

	c := testContext(t, "POST", "/v1/snapshots?vo=vo.ai4eosc.eu",
		CreateRequest{DeploymentUUID: "userjob-123"})
	_, err := h.create(c)
	require.Error(t, err)
	assert.True(t, errors.IsQuotaExceeded(err))
}

func TestCreateContainerTooLarge(t *testing.T) {
	setupConfig(t)
	sched, h, _ := runningDeployment()
	// 20 GB disk against the default 10 GiB commit limit
	sched.jobs["userjob-123"].TaskGroups = []nomad.TaskGroup{
		{Name: "user", EphemeralDisk: &nomad.EphemeralDisk{SizeMB: 20000}},
	}

	c := testContext(t, "POST", "/v1/snapshots?vo=vo.ai4eosc.eu",
		CreateRequest{DeploymentUUID: "userjob-123"})
	_, err := h.create(c)
	require.Error(t, err)
	assert.True(t, errors.IsSnapshotTooLarge(err))
}

func TestCreateTimestampCollision(t *testing.T) {
	setupConfig(t)
	_, h, reg := runningDeployment()
	reg.snapshots = []registry.Snapshot{{ID: "userjob-123_2025-06-01_08-30-00"}}

	c := testContext(t, "POST", "/v1/snapshots?vo=vo.ai4eosc.eu",
		CreateRequest{DeploymentUUID: "userjob-123"})
	_, err := h.create(c)
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}

func TestListMergesInFlightJobs(t *testing.T) {
	setupConfig(t)
	sched, h, reg := runningDeployment()
	reg.snapshots = []registry.Snapshot{{ID: "userjob-123_2025-05-01_10-00-00"}}
	sched.jobs["snapshot-userjob-123_2025-06-01_08-30-00"] = &nomad.Job{
		ID:         "snapshot-userjob-123_2025-06-01_08-30-00",
		Status:     nomad.JobStatusRunning,
		Type:       nomad.JobTypeBatch,
		SubmitTime: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC).UnixNano(),
		Meta: map[string]string{
			nomad.MetaOwner: "alice@x",
			"snapshot_id":   "userjob-123_2025-06-01_08-30-00",
			"title":         "in flight",
		},
	}

	c := testContext(t, "GET", "/v1/snapshots?vo=vo.ai4eosc.eu", nil)
	out, err := h.list(c)
	require.NoError(t, err)
	views := out.([]SnapshotView)
	require.Len(t, views, 2)
	assert.Equal(t, "complete", views[0].Status)
	assert.Equal(t, "userjob-123_2025-06-01_08-30-00", views[1].ID)
	assert.Equal(t, nomad.StatusQueued, views[1].Status)
	// the in-flight view takes its push time from the job's submit time
	assert.Equal(t, time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC), views[1].PushTime.UTC())
}

func TestDeleteSnapshot(t *testing.T) {
	setupConfig(t)
	_, h, reg := runningDeployment()

	c := testContext(t, "DELETE", "/v1/snapshots/userjob-123_2025-05-01_10-00-00?vo=vo.ai4eosc.eu", nil)
	c.Params = gin.Params{{Key: "id", Value: "userjob-123_2025-05-01_10-00-00"}}
	_, err := h.delete(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"userjob-123_2025-05-01_10-00-00"}, reg.deleted)
}
