package provisioner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/service/runner_service"
)

const (
	defaultCommandTimeout = 3 * time.Minute

	// template handed to docker inspect to extract the first published
	// host port of the instance's main container
	portInspectFormat = "{{range $p, $conf := .NetworkSettings.Ports}}{{(index $conf 0).HostPort}}{{end}}"
)

// CheckEnv verifies docker and docker-compose are installed and usable
// before the provisioner accepts work.
func (p *ComposeProvisioner) CheckEnv(ctx context.Context) error {
	for _, probe := range [][]string{
		{"docker", "--version"},
		{"docker-compose", "--version"},
		{"docker", "ps"},
	} {
		if _, err := p.runCommand(ctx, "env_check", probe[0], probe[1:], nil, runner_service.CmdCombined); err != nil {
			return fmt.Errorf(
				"%w, docker environment check failed on %q, %w",
				ctf_errors.ErrProvisioner,
				strings.Join(probe, " "),
				err,
			)
		}
	}
	return nil
}

func (p *ComposeProvisioner) Start(
	ctx context.Context,
	instanceID uuid.UUID,
	rt Runtime,
) (Endpoint, error) {
	project := p.newProject(instanceID, rt)

	env := []string{"ID=" + instanceID.String()}
	if rt.IsDynamicFlag {
		env = append(env, "FLAG="+rt.Flag)
	}

	upArgs := []string{
		"--file", project.composeFile,
		"--project-name", project.projectName,
		"up", "--detach",
	}
	if out, err := p.runCommand(ctx, "compose_up", "docker-compose", upArgs, env, runner_service.CmdCombined); err != nil {
		log.WithFields(log.Fields{
			"instance_id": instanceID,
			"challenge":   rt.ChallengeName,
		}).Errorf("compose up failed, %v, output: %s", err, out)
		return Endpoint{}, fmt.Errorf(
			"%w, cannot bring up environment for challenge %s, %w",
			ctf_errors.ErrProvisioner,
			rt.ChallengeName,
			err,
		)
	}

	port, err := p.discoverPort(ctx, project)
	if err != nil {
		// the environment is up but unreachable. tear it down rather
		// than leak a half-provisioned project.
		p.teardown(ctx, project)
		return Endpoint{}, err
	}

	p.mu.Lock()
	if p.projects == nil {
		p.projects = make(map[uuid.UUID]composeProject)
	}
	p.projects[instanceID] = project
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"instance_id": instanceID,
		"project":     project.projectName,
		"port":        port,
	}).Info("challenge environment is up")

	return Endpoint{Host: p.PublicHost, Port: port}, nil
}

func (p *ComposeProvisioner) Stop(ctx context.Context, instanceID uuid.UUID) error {
	p.mu.Lock()
	project, ok := p.projects[instanceID]
	if ok {
		delete(p.projects, instanceID)
	}
	p.mu.Unlock()

	if !ok {
		// unknown or already stopped. stop is an ack either way
		log.Debugf("stop requested for unknown instance %v, nothing to do", instanceID)
		return nil
	}

	return p.teardown(ctx, project)
}

func (p *ComposeProvisioner) teardown(ctx context.Context, project composeProject) error {
	downArgs := []string{
		"--file", project.composeFile,
		"--project-name", project.projectName,
		"down", "--volumes", "--timeout=1",
	}
	if out, err := p.runCommand(ctx, "compose_down", "docker-compose", downArgs, nil, runner_service.CmdCombined); err != nil {
		log.Errorf("compose down failed for project %s, %v, output: %s", project.projectName, err, out)
		return fmt.Errorf(
			"%w, cannot tear down project %s, %w",
			ctf_errors.ErrProvisioner,
			project.projectName,
			err,
		)
	}
	return nil
}

func (p *ComposeProvisioner) discoverPort(
	ctx context.Context,
	project composeProject,
) (int32, error) {
	out, err := p.runCommand(
		ctx,
		"port_inspect",
		"docker",
		[]string{"inspect", "--format", portInspectFormat, project.containerName},
		nil,
		runner_service.CmdOutput,
	)
	if err != nil {
		return 0, fmt.Errorf(
			"%w, cannot inspect container %s for its published port, %w",
			ctf_errors.ErrProvisioner,
			project.containerName,
			err,
		)
	}

	port, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf(
			"%w, container %s published an unparsable port %q",
			ctf_errors.ErrProvisioner,
			project.containerName,
			strings.TrimSpace(string(out)),
		)
	}
	return int32(port), nil
}

func (p *ComposeProvisioner) newProject(instanceID uuid.UUID, rt Runtime) composeProject {
	composeFile := rt.ComposeFile
	if !filepath.IsAbs(composeFile) {
		composeFile = filepath.Join(p.ChallengesDir, composeFile)
	}

	// short id keeps project and container names within docker's limits
	shortID := strings.ReplaceAll(instanceID.String(), "-", "")[:12]

	return composeProject{
		composeFile:   composeFile,
		projectName:   fmt.Sprintf("challenge-project-%s-%s", shortID, rt.ChallengeName),
		containerName: fmt.Sprintf("challenge-%s-%s", rt.ChallengeName, shortID),
	}
}

// runCommand schedules one command on the runner and waits for it to
// finish or the context to expire.
func (p *ComposeProvisioner) runCommand(
	ctx context.Context,
	taskName string,
	name string,
	args []string,
	env []string,
	execType runner_service.CmdExecType,
) ([]byte, error) {
	timeout := p.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan runner_service.TaskResponse, 1)
	_, err := p.Runner.ScheduleTask(runner_service.TaskRequest{
		Name:      taskName,
		Resources: p.CommandResources,
		Command: runner_service.Command{
			Name:        name,
			Args:        args,
			Env:         env,
			CmdExecType: execType,
		},
		OnLaunchComplete: func(response runner_service.TaskResponse) {
			done <- response
		},
	})
	if err != nil {
		return nil, err
	}

	select {
	case response := <-done:
		return response.Out, response.Error
	case <-ctx.Done():
		return nil, errors.Join(ctf_errors.ErrProvisioner, ctx.Err())
	}
}
