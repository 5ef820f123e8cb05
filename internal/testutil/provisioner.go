package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FloatCTF/cdm/internal/provisioner"
)

// FakeProvisioner records start and stop calls. StartDelay holds Start
// open to widen race windows, StartErr makes provisioning fail.
type FakeProvisioner struct {
	Endpoint   provisioner.Endpoint
	StartErr   error
	StartDelay time.Duration

	mu      sync.Mutex
	started map[uuid.UUID]int
	stopped map[uuid.UUID]int
}

var _ provisioner.Provisioner = (*FakeProvisioner)(nil)

func (f *FakeProvisioner) Start(
	ctx context.Context,
	instanceID uuid.UUID,
	rt provisioner.Runtime,
) (provisioner.Endpoint, error) {
	if f.StartDelay > 0 {
		select {
		case <-time.After(f.StartDelay):
		case <-ctx.Done():
			return provisioner.Endpoint{}, ctx.Err()
		}
	}
	if f.StartErr != nil {
		return provisioner.Endpoint{}, f.StartErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started == nil {
		f.started = make(map[uuid.UUID]int)
	}
	f.started[instanceID]++

	endpoint := f.Endpoint
	if endpoint.Host == "" {
		endpoint = provisioner.Endpoint{Host: "ctf.example.org", Port: 31337}
	}
	return endpoint, nil
}

func (f *FakeProvisioner) Stop(ctx context.Context, instanceID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped == nil {
		f.stopped = make(map[uuid.UUID]int)
	}
	f.stopped[instanceID]++
	return nil
}

func (f *FakeProvisioner) StartCount(instanceID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[instanceID]
}

func (f *FakeProvisioner) StopCount(instanceID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped[instanceID]
}
