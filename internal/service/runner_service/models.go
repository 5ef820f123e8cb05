package runner_service

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sigtermWaitDuration = 2
)

type CmdExecType int

const (
	CmdRun CmdExecType = iota
	CmdOutput
	CmdCombined
	CmdLongRunning
)

type TaskState int

const (
	StateQueued TaskState = iota
	StateRunning
	StateCompleted
	StateFailed
	StateKilled

	// Use the below ones with caution
	StateDead // use when you cant determine completed, failed or killed
	StateUnknown
)

// Resources are abstract capacity units the host operator grants the
// runner. Provisioner commands reserve them for their lifetime so a
// burst of instance requests cannot fork-bomb the host.
type Resources struct {
	CPU    int32
	Memory int32
}

type Runner struct {
	Resources   Resources
	QueueBuffer int32

	resourceRelease chan Resources
	taskQueue       chan *Task
	tasks           map[uuid.UUID]*Task
	// runner's resources and tasks map use the below lock
	taskMapAndResourceLock sync.RWMutex
}

type Command struct {
	Name        string
	Args        []string
	Env         []string
	CmdExecType CmdExecType
}

type TaskRequest struct {
	Name             string
	Resources        Resources
	Command          Command
	OnLaunchComplete func(response TaskResponse)
	OnTaskComplete   func(taskID uuid.UUID, err error) // valid only for CmdLongRunning mode tasks
}

type TaskResponse struct {
	TaskID uuid.UUID
	Out    []byte
	Error  error
}

type Task struct {
	TaskRequest
	sync.Mutex
	TaskID     uuid.UUID
	cmd        *exec.Cmd
	QueueTime  time.Time
	LaunchTime time.Time
	State      TaskState
}

func (t *Task) String() string {
	return fmt.Sprintf(
		"[TaskID=%s QueueTime=%s LaunchTime=%s State=%v]",
		t.TaskID, t.QueueTime, t.LaunchTime, t.State,
	)
}
