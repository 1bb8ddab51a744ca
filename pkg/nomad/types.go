/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package nomad

// Job is the subset of the Scheduler's job object PAPI reads and writes.
type Job struct {
	ID          string            `json:"ID"`
	Name        string            `json:"Name"`
	Namespace   string            `json:"Namespace"`
	Type        string            `json:"Type"`
	Status      string            `json:"Status"`
	Priority    int               `json:"Priority"`
	Meta        map[string]string `json:"Meta"`
	TaskGroups  []TaskGroup       `json:"TaskGroups"`
	SubmitTime  int64             `json:"SubmitTime"`
	Stop        bool              `json:"Stop"`
	Constraints []Constraint      `json:"Constraints,omitempty"`
}

// JobStub is the trimmed job returned by the list endpoint.
type JobStub struct {
	ID         string            `json:"ID"`
	Name       string            `json:"Name"`
	Namespace  string            `json:"Namespace"`
	Type       string            `json:"Type"`
	Status     string            `json:"Status"`
	Meta       map[string]string `json:"Meta"`
	SubmitTime int64             `json:"SubmitTime"`
}

type TaskGroup struct {
	Name          string         `json:"Name"`
	Count         int            `json:"Count"`
	Tasks         []Task         `json:"Tasks"`
	Services      []Service      `json:"Services,omitempty"`
	EphemeralDisk *EphemeralDisk `json:"EphemeralDisk,omitempty"`
}

type EphemeralDisk struct {
	SizeMB int64 `json:"SizeMB"`
}

type Task struct {
	Name      string                 `json:"Name"`
	Driver    string                 `json:"Driver"`
	Config    map[string]interface{} `json:"Config,omitempty"`
	Env       map[string]string      `json:"Env,omitempty"`
	Resources *Resources             `json:"Resources,omitempty"`
}

type Resources struct {
	CPU      int      `json:"CPU"`
	Cores    int      `json:"Cores"`
	MemoryMB int      `json:"MemoryMB"`
	DiskMB   int      `json:"DiskMB"`
	Devices  []Device `json:"Devices,omitempty"`
}

// Device requests accelerators; Name is e.g. "gpu" or "gpu/A100".
type Device struct {
	Name  string `json:"Name"`
	Count int    `json:"Count"`
}

type Service struct {
	Name      string   `json:"Name"`
	PortLabel string   `json:"PortLabel"`
	Tags      []string `json:"Tags"`
}

type Constraint struct {
	LTarget string `json:"LTarget"`
	RTarget string `json:"RTarget"`
	Operand string `json:"Operand"`
}

// Allocation is one placement of a job's task group on a node.
type Allocation struct {
	ID                 string               `json:"ID"`
	Name               string               `json:"Name"`
	Namespace          string               `json:"Namespace"`
	NodeID             string               `json:"NodeID"`
	JobID              string               `json:"JobID"`
	ClientStatus       string               `json:"ClientStatus"`
	CreateTime         int64                `json:"CreateTime"`
	TaskStates         map[string]TaskState `json:"TaskStates"`
	AllocatedResources *AllocatedResources  `json:"AllocatedResources,omitempty"`
	// RescheduleTracker counts how often this placement was retried.
	RescheduleTracker *RescheduleTracker `json:"RescheduleTracker,omitempty"`
}

// AllocatedResources is what the Scheduler actually granted an allocation,
// per task.
type AllocatedResources struct {
	Tasks map[string]AllocatedTask `json:"Tasks"`
}

type AllocatedTask struct {
	Cpu struct {
		CpuShares int64 `json:"CpuShares"`
	} `json:"Cpu"`
	Memory struct {
		MemoryMB int64 `json:"MemoryMB"`
	} `json:"Memory"`
	Devices []AllocatedDevice `json:"Devices,omitempty"`
}

type AllocatedDevice struct {
	Type      string   `json:"Type"`
	Vendor    string   `json:"Vendor"`
	Name      string   `json:"Name"`
	DeviceIDs []string `json:"DeviceIDs"`
}

type RescheduleTracker struct {
	Events []RescheduleEvent `json:"Events"`
}

type RescheduleEvent struct {
	RescheduleTime int64  `json:"RescheduleTime"`
	PrevAllocID    string `json:"PrevAllocID"`
}

type TaskState struct {
	State  string      `json:"State"`
	Failed bool        `json:"Failed"`
	Events []TaskEvent `json:"Events"`
}

type TaskEvent struct {
	Type           string `json:"Type"`
	Time           int64  `json:"Time"`
	DisplayMessage string `json:"DisplayMessage"`
	ExitCode       int    `json:"ExitCode"`
}

// Evaluation carries placement failures for jobs that never got an
// allocation.
type Evaluation struct {
	ID             string                     `json:"ID"`
	Status         string                     `json:"Status"`
	CreateTime     int64                      `json:"CreateTime"`
	FailedTGAllocs map[string]AllocationMetric `json:"FailedTGAllocs"`
}

type AllocationMetric struct {
	NodesEvaluated    int            `json:"NodesEvaluated"`
	NodesFiltered     int            `json:"NodesFiltered"`
	NodesExhausted    int            `json:"NodesExhausted"`
	ConstraintFiltered map[string]int `json:"ConstraintFiltered"`
	DimensionExhausted map[string]int `json:"DimensionExhausted"`
}

// Node is the subset of the Scheduler's node object used by the stats
// aggregator and the try-me headroom gate.
type Node struct {
	ID                    string            `json:"ID"`
	Name                  string            `json:"Name"`
	Status                string            `json:"Status"`
	SchedulingEligibility string            `json:"SchedulingEligibility"`
	Meta                  map[string]string `json:"Meta"`
	Attributes            map[string]string `json:"Attributes"`
	NodeResources         *NodeResources    `json:"NodeResources,omitempty"`
	ReservedResources     *NodeResources    `json:"ReservedResources,omitempty"`
}

type NodeResources struct {
	Cpu     NodeCPU      `json:"Cpu"`
	Memory  NodeMemory   `json:"Memory"`
	Disk    NodeDisk     `json:"Disk"`
	Devices []NodeDevice `json:"Devices,omitempty"`
}

type NodeCPU struct {
	CpuShares int64 `json:"CpuShares"`
}

type NodeMemory struct {
	MemoryMB int64 `json:"MemoryMB"`
}

type NodeDisk struct {
	DiskMB int64 `json:"DiskMB"`
}

type NodeDevice struct {
	Type      string               `json:"Type"`
	Vendor    string               `json:"Vendor"`
	Name      string               `json:"Name"`
	Instances []NodeDeviceInstance `json:"Instances"`
}

type NodeDeviceInstance struct {
	ID      string `json:"ID"`
	Healthy bool   `json:"Healthy"`
}

// job/allocation states as the Scheduler reports them
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDead    = "dead"

	JobTypeService = "service"
	JobTypeBatch   = "batch"

	AllocStatusPending  = "pending"
	AllocStatusRunning  = "running"
	AllocStatusComplete = "complete"
	AllocStatusFailed   = "failed"
	AllocStatusLost     = "lost"
	AllocStatusUnknown  = "unknown"

	NodeStatusReady = "ready"
	NodeStatusDown  = "down"

	NodeEligible   = "eligible"
	NodeIneligible = "ineligible"

	TaskStateDead = "dead"

	// MetaOwner is the job metadata field carrying the owner subject; the
	// ownership checks and the list filter both key on it.
	MetaOwner = "owner"
)
