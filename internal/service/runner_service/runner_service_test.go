package runner_service_test

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/runner_service"
)

var runner runner_service.Runner

func TestMain(m *testing.M) {
	// setup
	fmt.Println("starting initializations")

	// logger
	fmt.Println("initializing logger")
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
		PadLevelText:  false,
	})
	logrus.SetLevel(logrus.DebugLevel)

	logrus.Info("initializing service")
	service.InitializeServices()

	logrus.Info("initializing runner")
	runner = runner_service.Runner{
		Resources: runner_service.Resources{
			CPU:    200,
			Memory: 2000,
		},
		QueueBuffer: 10,
	}
	runner.Start()

	logrus.Info("starting tests")
	code := m.Run()

	// teardown
	logrus.Info("tests completed")

	os.Exit(code)
}

func assertTaskState(
	t *testing.T,
	taskID uuid.UUID,
	state runner_service.TaskState,
	delaySeconds int32,
) {
	var currentState runner_service.TaskState
	for i := int32(0); i < delaySeconds; i++ {
		currentState, err := runner.GetTaskState(taskID)
		if err != nil {
			t.Errorf("error getting task state: %v", err)
			return
		}
		if currentState == state {
			return
		}
		t.Logf("task %v current state: %v, waiting for state: %v", taskID, currentState, state)
		time.Sleep(time.Second)
	}
	if currentState != state {
		t.Errorf("task %v did not reach state %v in %v seconds", taskID, state, delaySeconds)
	}
}

func TestOutputCommand(t *testing.T) {
	done := make(chan runner_service.TaskResponse, 1)

	taskID, err := runner.ScheduleTask(runner_service.TaskRequest{
		Name: "output_command_test",
		Resources: runner_service.Resources{
			CPU:    10,
			Memory: 100,
		},
		Command: runner_service.Command{
			Name:        "echo",
			Args:        []string{"31337"},
			CmdExecType: runner_service.CmdOutput,
		},
		OnLaunchComplete: func(res runner_service.TaskResponse) {
			done <- res
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if res.Error != nil {
			t.Errorf("command failed: %v", res.Error)
		}
		if strings.TrimSpace(string(res.Out)) != "31337" {
			t.Errorf("unexpected output %q", res.Out)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("output command did not finish in time")
	}

	assertTaskState(t, taskID, runner_service.StateCompleted, 5)
}

func TestCommandWithEnv(t *testing.T) {
	done := make(chan runner_service.TaskResponse, 1)

	_, err := runner.ScheduleTask(runner_service.TaskRequest{
		Name: "env_command_test",
		Resources: runner_service.Resources{
			CPU:    10,
			Memory: 100,
		},
		Command: runner_service.Command{
			Name:        "sh",
			Args:        []string{"-c", "echo $FLAG"},
			Env:         []string{"FLAG=FloatCTF{env_injection}"},
			CmdExecType: runner_service.CmdOutput,
		},
		OnLaunchComplete: func(res runner_service.TaskResponse) {
			done <- res
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if res.Error != nil {
			t.Errorf("command failed: %v", res.Error)
		}
		if strings.TrimSpace(string(res.Out)) != "FloatCTF{env_injection}" {
			t.Errorf("env was not injected, got %q", res.Out)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("env command did not finish in time")
	}
}

func TestFailingCommand(t *testing.T) {
	done := make(chan runner_service.TaskResponse, 1)

	taskID, err := runner.ScheduleTask(runner_service.TaskRequest{
		Name: "failing_command_test",
		Resources: runner_service.Resources{
			CPU:    10,
			Memory: 100,
		},
		Command: runner_service.Command{
			Name:        "false",
			CmdExecType: runner_service.CmdRun,
		},
		OnLaunchComplete: func(res runner_service.TaskResponse) {
			done <- res
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if res.Error == nil {
			t.Error("expected a non-zero exit to surface as an error")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("failing command did not finish in time")
	}

	assertTaskState(t, taskID, runner_service.StateFailed, 5)
}

func TestLongRunningTaskKill(t *testing.T) {
	var launch bool

	taskID, err := runner.ScheduleTask(runner_service.TaskRequest{
		Name: "long_running_kill_test",
		Resources: runner_service.Resources{
			CPU:    10,
			Memory: 100,
		},
		Command: runner_service.Command{
			Name:        "sleep",
			Args:        []string{"300"},
			CmdExecType: runner_service.CmdLongRunning,
		},
		OnLaunchComplete: func(res runner_service.TaskResponse) {
			if res.Error != nil {
				t.Errorf("launch failed: %v", res.Error)
			}
			launch = true
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	assertTaskState(t, taskID, runner_service.StateRunning, 10)

	if err := runner.KillTask(taskID); err != nil {
		t.Fatalf("kill failed: %v", err)
	}

	assertTaskState(t, taskID, runner_service.StateKilled, 10)

	if !launch {
		t.Error("OnLaunchComplete was not called")
	}
}

func TestInsufficientResourcesFailsFast(t *testing.T) {
	done := make(chan runner_service.TaskResponse, 1)

	_, err := runner.ScheduleTask(runner_service.TaskRequest{
		Name: "too_greedy_test",
		Resources: runner_service.Resources{
			CPU:    100000,
			Memory: 100000,
		},
		Command: runner_service.Command{
			Name:        "true",
			CmdExecType: runner_service.CmdRun,
		},
		OnLaunchComplete: func(res runner_service.TaskResponse) {
			done <- res
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if res.Error == nil {
			t.Error("a request beyond the runner's capacity must fail")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("over-capacity request was not rejected in time")
	}
}
