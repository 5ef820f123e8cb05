package runner_service

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
)

func (r *Resources) add(other Resources) {
	r.CPU += other.CPU
	r.Memory += other.Memory
}

func (r *Resources) greater(other Resources) bool {
	return r.CPU > other.CPU && r.Memory > other.Memory
}

func (r *Resources) use(other Resources) error {
	if other.greater(*r) {
		return fmt.Errorf(
			"%w, requested resources are greater than available resources",
			ctf_errors.ErrInvalidRequest,
		)
	}

	r.CPU -= other.CPU
	r.Memory -= other.Memory

	return nil
}

func (s *Runner) GetTaskState(taskID uuid.UUID) (TaskState, error) {
	task, err := s.getTask(taskID)
	if err != nil {
		return StateUnknown, err
	}

	return task.getState(), nil
}

func (s *Runner) KillTask(taskID uuid.UUID) error {
	task, err := s.getTask(taskID)
	if err != nil {
		return err
	}

	state := task.getState()
	if state != StateRunning {
		// don't return error as caller might see state as running
		// and then call this function. In-between state might have been changed
		return nil
	}

	s.killTasks(task)

	return nil
}

func (s *Runner) killTasks(tasksToKill ...*Task) {
	// create a waitgroup to count how many tasks have been killed
	wg := sync.WaitGroup{}

	for _, task := range tasksToKill {
		wg.Add(1)
		go s.killTask(task, &wg)
	}

	wg.Wait()
}

// this function can be used to launch as go-routine or can be called directly
func (s *Runner) killTask(
	task *Task,
	wg *sync.WaitGroup,
) {
	if wg != nil {
		defer wg.Done()
	}

	if task == nil {
		logrus.Warn("nil task received, cannot kill task")
		return
	}

	if task.Command.CmdExecType != CmdLongRunning {
		logrus.WithField("task", task).Warn(
			"non-long-running task has been assigned to kill",
		)
		return
	}

	task.Lock()
	defer task.Unlock()

	if !task.isAlive() {
		return
	}

	task.signalProcess(syscall.SIGTERM)

	// wait for some time for graceful shutdown of the process
	for i := 0; i < sigtermWaitDuration; i++ {
		if !task.isAlive() {
			break
		}
		time.Sleep(time.Second)
	}

	if task.isAlive() {
		task.signalProcess(syscall.SIGKILL)
	}
}

// not thread safe
func (t *Task) signalProcess(signal syscall.Signal) {
	t.cmd.Process.Signal(signal)
}

// DOESN'T work on windows
// function is NOT thread safe
func (t *Task) isAlive() bool {
	// trivial case
	if t.State != StateRunning {
		return false
	}

	// task not yet launched
	if t.cmd == nil {
		return false
	}

	// command not yet started
	if t.cmd.Process == nil {
		return false
	}

	// 0 signal doesn't signal the task. It just check if the
	// process is alive and you are permitted to do so
	return t.cmd.Process.Signal(syscall.Signal(0)) == nil
}

func (t *Task) getState() TaskState {
	t.Lock()
	defer t.Unlock()

	if t.State != StateRunning {
		return t.State
	}

	if t.isAlive() {
		return StateRunning
	}

	return StateDead
}

func (s *Runner) getTask(taskID uuid.UUID) (*Task, error) {
	s.taskMapAndResourceLock.RLock()
	defer s.taskMapAndResourceLock.RUnlock()

	// get task
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf(
			"%w, task with id %v does not exist",
			ctf_errors.ErrNotFound,
			taskID,
		)
	}

	return task, nil
}

// used to infer state of task from error returned by cmd.Wait()
func getTaskStateFromError(err error) TaskState {
	if err == nil {
		return StateCompleted
	}

	// this error is returned if process has started running
	// and then it encountered an error
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status, ok := exitErr.Sys().(syscall.WaitStatus)
		if !ok {
			// this should never happen in linux systems
			logrus.Errorf(
				"cannot cast exit info (exitErr.Sys()): '%v' to syscall.WaitStatus",
				exitErr.Sys(),
			)
			return StateDead
		}

		// either terminated or killed
		if status.Signaled() {
			return StateKilled
		}

		// exited with non-zero exit code
		if status.ExitStatus() != 0 {
			return StateFailed
		}

		// exited with zero exit code
		return StateCompleted
	}

	// command not even started. unknown error
	logrus.Errorf(
		"cannot cast error '%v' to exec.ExitError. Check if your command is correct!",
		err,
	)
	return StateFailed
}

func (t *Task) getLogger(prefix string, suffix string) *logrus.Entry {
	return logrus.WithFields(
		logrus.Fields{
			prefix + "id" + suffix:   t.TaskID,
			prefix + "name" + suffix: t.Name,
		},
	)
}

// not thread safe
func (s *Runner) cleanTaskReleasedResources() {
	for {
		select {
		case r := <-s.resourceRelease:
			s.Resources.add(r)
		default:
			return
		}
	}
}
