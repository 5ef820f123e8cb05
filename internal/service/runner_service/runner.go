package runner_service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
)

func (s *Runner) Start() {
	logrus.Info("initializing runner's taskQueue channel with buffer size ", s.QueueBuffer)
	s.taskQueue = make(chan *Task, s.QueueBuffer)

	logrus.Info("initializing runner's tasks map")
	s.tasks = make(map[uuid.UUID]*Task)

	logrus.Info("initializing runner's task map lock")
	s.taskMapAndResourceLock = sync.RWMutex{}

	logrus.Info("initializing channel for task released resources")
	// sending should be non-blocking in any case. so initialize with large size
	s.resourceRelease = make(chan Resources, 500)

	logrus.Info("starting a 'launch' goroutine")
	go s.launch()
}

func (s *Runner) ScheduleTask(req TaskRequest) (uuid.UUID, error) {
	// validate first
	err := validateTaskRequest(req)
	if err != nil {
		return uuid.Nil, err
	}

	// generate a random taskID
	taskID := uuid.New()

	task := Task{
		TaskRequest: req,
		TaskID:      taskID,
		State:       StateQueued,
		QueueTime:   time.Now(),
	}

	logrus.WithFields(
		logrus.Fields{
			"task_id":   task.TaskID,
			"task_name": task.Name,
		},
	).Info("queueing task")

	s.taskMapAndResourceLock.Lock()
	defer s.taskMapAndResourceLock.Unlock()

	s.tasks[taskID] = &task
	s.taskQueue <- &task

	return taskID, nil
}

func validateTaskRequest(req TaskRequest) error {
	zeroResources := Resources{}

	if zeroResources.greater(req.Resources) {
		return fmt.Errorf(
			"%w, requested resources cannot be negative",
			ctf_errors.ErrInvalidRequest,
		)
	}

	if req.Command.Name == "" {
		return fmt.Errorf(
			"%w, task command cannot be empty",
			ctf_errors.ErrInvalidRequest,
		)
	}

	if req.OnLaunchComplete == nil {
		return fmt.Errorf(
			"%w, OnLaunchComplete callback cannot be nil",
			ctf_errors.ErrInvalidRequest,
		)
	}

	return nil
}

func (s *Runner) launch() {
	for req := range s.taskQueue {
		s.launchTask(req)
	}
}

func (s *Runner) launchTask(req *Task) {
	if req == nil {
		logrus.Error("nil task received, cannot launch task")
		return
	}

	// acquire the lock for planning and cleaning purposes
	s.taskMapAndResourceLock.Lock()
	defer s.taskMapAndResourceLock.Unlock()

	task, ok := s.tasks[req.TaskID]
	if !ok {
		err := fmt.Errorf(
			"%w, task with id %v is absent in the map while launching",
			ctf_errors.ErrTaskLaunch,
			req.TaskID,
		)
		logrus.Error(err)
		return
	}

	task.Lock()
	defer task.Unlock()

	launchLogger := task.getLogger("launchable_", "")

	// reclaim whatever completed tasks gave back, then reserve
	s.cleanTaskReleasedResources()
	if !s.Resources.greater(task.Resources) {
		// provisioner commands are short and few. if the host cannot
		// take one more, failing fast beats queueing work against an
		// instance whose end_at keeps ticking.
		err := fmt.Errorf(
			"%w, not enough resources to launch task",
			ctf_errors.ErrTaskLaunch,
		)
		launchLogger.Error(err)
		task.State = StateFailed
		go task.OnLaunchComplete(TaskResponse{
			TaskID: task.TaskID,
			Out:    nil,
			Error:  err,
		})
		return
	}
	if err := s.Resources.use(task.Resources); err != nil {
		launchLogger.Error(err)
		task.State = StateFailed
		go task.OnLaunchComplete(TaskResponse{
			TaskID: task.TaskID,
			Out:    nil,
			Error:  err,
		})
		return
	}

	task.LaunchTime = time.Now()

	// execute the request
	go s.execute(task)
}
