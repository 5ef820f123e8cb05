package runner_service

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
)

func (s *Runner) execute(task *Task) {
	// long running task
	if task.Command.CmdExecType == CmdLongRunning {
		s.executeLongRunningTask(task)
		return
	}

	// all short-running tasks will never go to StateRunning as per current plan
	task.Lock()
	defer task.Unlock()

	executeLogger := task.getLogger("executable_", "")

	executeLogger.Info("executing task")

	var out []byte
	var err error

	// form the cmd object
	// Note: cmd is a pointer to exec.Cmd. exec.Command() never returns nil
	cmd := newTaskCmd(task)

	switch task.Command.CmdExecType {
	case CmdRun:
		err = cmd.Run()
	case CmdOutput:
		out, err = cmd.Output()
	case CmdCombined:
		out, err = cmd.CombinedOutput()
	default:
		err = fmt.Errorf(
			"%w, unknown command execution type: %v",
			ctf_errors.ErrInvalidRequest,
			task.Command.CmdExecType,
		)
	}

	s.resourceRelease <- task.Resources

	task.cmd = cmd
	task.State = getTaskStateFromError(err)

	// inform
	response := TaskResponse{
		TaskID: task.TaskID,
		Out:    out,
		Error:  err,
	}

	executeLogger.Debug("launching a gor calling OnLaunchComplete")
	go task.OnLaunchComplete(response)
}

func (s *Runner) executeLongRunningTask(task *Task) {
	task.Lock()
	defer task.Unlock()

	executeLogger := task.getLogger("executable_", "")

	executeLogger.Info("executing task")

	cmd := newTaskCmd(task)

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	if err != nil {
		s.resourceRelease <- task.Resources
		task.State = StateFailed
		go task.OnLaunchComplete(
			TaskResponse{
				task.TaskID,
				nil,
				err,
			},
		)
		return
	}

	task.State = StateRunning
	task.cmd = cmd

	executeLogger.Debugf("process id: %v", cmd.Process.Pid)

	executeLogger.Debug("launching a gor to monitor task for complete")
	go s.waitForTaskComplete(task)

	executeLogger.Debug("launching a gor calling OnLaunchComplete")
	go task.OnLaunchComplete(
		TaskResponse{
			task.TaskID,
			nil,
			nil,
		},
	)
}

func (s *Runner) waitForTaskComplete(task *Task) {
	err := task.cmd.Wait()

	// release the task's resources
	s.resourceRelease <- task.Resources

	deadLogger := task.getLogger("dead_task_", "")
	deadLogger.Debug("task has exited")

	task.Lock()
	defer task.Unlock()

	// update its state
	task.State = getTaskStateFromError(err)

	// inform
	if task.OnTaskComplete != nil {
		deadLogger.Debugf("launching a gor calling OnTaskComplete")
		go task.OnTaskComplete(task.TaskID, err)
	}
}

func newTaskCmd(task *Task) *exec.Cmd {
	cmd := exec.Command(task.Command.Name, task.Command.Args...)

	if len(task.Command.Env) > 0 {
		cmd.Env = append(os.Environ(), task.Command.Env...)
	}

	// This hook is called right before execve() in the child process.
	// We use syscall.SysProcAttr to set up the child's environment.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		// Pdeathsig is the specific Linux option that tells the child:
		// "If my parent dies, send me this signal."
		Pdeathsig: syscall.SIGKILL,
	}

	return cmd
}
