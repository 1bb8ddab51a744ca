/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package nomad

import (
	"fmt"
	"strings"
)

// user-facing deployment statuses
const (
	StatusQueued   = "queued"
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"
	StatusDown     = "down"
	StatusDeleted  = "deleted"
)

// forcePurgeStatuses are states where a plain stop would leave the job
// lingering; delete escalates to a purge for these.
var forcePurgeStatuses = map[string]bool{
	StatusQueued:   true,
	StatusComplete: true,
	StatusError:    true,
	StatusDown:     true,
}

// NeedsPurge reports whether a user-facing status requires purge on delete.
func NeedsPurge(status string) bool {
	return forcePurgeStatuses[status]
}

// SelectAllocation picks the allocation that best represents the job right
// now: an unknown one (node cut off) wins, then a running one, otherwise the
// most recent. allocs must be sorted most recent first.
func SelectAllocation(allocs []Allocation) *Allocation {
	if len(allocs) == 0 {
		return nil
	}
	for i := range allocs {
		if allocs[i].ClientStatus == AllocStatusUnknown {
			return &allocs[i]
		}
	}
	for i := range allocs {
		if allocs[i].ClientStatus == AllocStatusRunning {
			return &allocs[i]
		}
	}
	return &allocs[0]
}

// DeriveStatus reduces Scheduler state to the user-facing status plus an
// error message when the deployment failed.
func DeriveStatus(job *Job, allocs []Allocation, eval *Evaluation) (string, string) {
	if job.Status == JobStatusDead && job.Stop {
		return StatusDeleted, ""
	}

	alloc := SelectAllocation(allocs)
	if alloc == nil {
		// never placed: a failed evaluation means the cluster cannot fit it
		if eval != nil && len(eval.FailedTGAllocs) > 0 {
			return StatusError, formatPlacementFailure(eval)
		}
		if job.Status == JobStatusDead {
			return StatusDeleted, ""
		}
		return StatusQueued, ""
	}

	switch alloc.ClientStatus {
	case AllocStatusPending:
		return StatusStarting, ""
	case AllocStatusUnknown, AllocStatusLost:
		return StatusDown, ""
	case AllocStatusFailed:
		return StatusError, lastFailureMessage(alloc)
	case AllocStatusComplete:
		return StatusComplete, ""
	case AllocStatusRunning:
		if name, state := failedTask(alloc); state != nil {
			return StatusError, fmt.Sprintf("task %s failed: %s", name, lastEventMessage(state))
		}
		if job.Type == JobTypeBatch && mainTaskFinished(alloc) {
			return StatusComplete, ""
		}
		return StatusRunning, ""
	default:
		return StatusQueued, ""
	}
}

func failedTask(alloc *Allocation) (string, *TaskState) {
	for name, state := range alloc.TaskStates {
		if state.Failed {
			s := state
			return name, &s
		}
	}
	return "", nil
}

func mainTaskFinished(alloc *Allocation) bool {
	state, ok := alloc.TaskStates["main"]
	if !ok {
		return false
	}
	return state.State == TaskStateDead && !state.Failed
}

// lastFailureMessage surfaces the most recent event of the failed task so
// users see what actually went wrong inside the container.
func lastFailureMessage(alloc *Allocation) string {
	if name, state := failedTask(alloc); state != nil {
		return fmt.Sprintf("task %s failed: %s", name, lastEventMessage(state))
	}
	for name, state := range alloc.TaskStates {
		if len(state.Events) > 0 {
			s := state
			return fmt.Sprintf("task %s: %s", name, lastEventMessage(&s))
		}
	}
	return "allocation failed"
}

func lastEventMessage(state *TaskState) string {
	if len(state.Events) == 0 {
		return "no events recorded"
	}
	last := state.Events[0]
	for _, e := range state.Events[1:] {
		if e.Time > last.Time {
			last = e
		}
	}
	return last.DisplayMessage
}

func formatPlacementFailure(eval *Evaluation) string {
	var parts []string
	for tg, metric := range eval.FailedTGAllocs {
		var reasons []string
		for constraint, count := range metric.ConstraintFiltered {
			reasons = append(reasons, fmt.Sprintf("%d node(s) filtered by %q", count, constraint))
		}
		for dim, count := range metric.DimensionExhausted {
			reasons = append(reasons, fmt.Sprintf("%d node(s) exhausted on %s", count, dim))
		}
		if len(reasons) == 0 {
			reasons = append(reasons, fmt.Sprintf("%d node(s) evaluated, none feasible", metric.NodesEvaluated))
		}
		parts = append(parts, fmt.Sprintf("group %s: %s", tg, strings.Join(reasons, "; ")))
	}
	return "placement failed: " + strings.Join(parts, " | ")
}

// GPURequest sums the GPU devices requested by a job and reports the model
// when one is pinned.
func GPURequest(job *Job) (count int, model string) {
	for _, tg := range job.TaskGroups {
		for _, task := range tg.Tasks {
			if task.Resources == nil {
				continue
			}
			for _, dev := range task.Resources.Devices {
				if !strings.HasPrefix(dev.Name, "gpu") {
					continue
				}
				count += dev.Count
				if _, m, found := strings.Cut(dev.Name, "/"); found && m != "" {
					model = m
				}
			}
		}
	}
	return count, model
}

// ResourceTotals sums CPU cores, memory and disk across a job's tasks.
func ResourceTotals(job *Job) (cpu, memoryMB, diskMB int) {
	for _, tg := range job.TaskGroups {
		for _, task := range tg.Tasks {
			if task.Resources == nil {
				continue
			}
			cpu += task.Resources.Cores
			memoryMB += task.Resources.MemoryMB
			diskMB += task.Resources.DiskMB
		}
	}
	return cpu, memoryMB, diskMB
}
