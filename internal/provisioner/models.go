package provisioner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FloatCTF/cdm/internal/service/runner_service"
)

// Endpoint is the connection info a provisioned environment exposes.
type Endpoint struct {
	Host string `json:"host"`
	Port int32  `json:"port"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Runtime carries everything the provisioner needs to bring up one
// instance of a challenge.
type Runtime struct {
	ChallengeName string
	ComposeFile   string
	Flag          string
	IsDynamicFlag bool
}

// Provisioner runs and tears down isolated challenge environments. Stop
// must be idempotent: stopping an unknown or already stopped instance is
// an ack, not an error.
type Provisioner interface {
	Start(ctx context.Context, instanceID uuid.UUID, rt Runtime) (Endpoint, error)
	Stop(ctx context.Context, instanceID uuid.UUID) error
}

// ComposeProvisioner drives challenge environments through the
// docker-compose CLI, one compose project per instance. Commands are
// executed through the resource accounted runner.
type ComposeProvisioner struct {
	Runner *runner_service.Runner
	// PublicHost is the address players connect to, the published port is
	// discovered per instance.
	PublicHost string
	// ChallengesDir anchors relative compose file paths from content
	// management.
	ChallengesDir string
	// CommandResources is the runner reservation per compose command.
	CommandResources runner_service.Resources
	// CommandTimeout bounds every compose/docker invocation.
	CommandTimeout time.Duration

	mu       sync.Mutex
	projects map[uuid.UUID]composeProject
}

type composeProject struct {
	composeFile   string
	projectName   string
	containerName string
}
