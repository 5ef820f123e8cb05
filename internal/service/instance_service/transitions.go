package instance_service

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/provisioner"
)

// provision drives one pending instance to running or error. It runs in
// its own goroutine with its own context, the request that created the
// row has long returned.
func (i *InstanceService) provision(
	instance database.ChallengeInstance,
	challenge database.Challenge,
	flag string,
) {
	timeout := i.ProvisionTimeout
	if timeout <= 0 {
		timeout = DefaultProvisionTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	provisionLogger := log.WithFields(log.Fields{
		"instance_id": instance.ID,
		"challenge":   challenge.ChallengeName,
	})

	composeFile := ""
	if challenge.ComposeFile != nil {
		composeFile = *challenge.ComposeFile
	}

	endpoint, err := i.Provisioner.Start(ctx, instance.ID, provisioner.Runtime{
		ChallengeName: challenge.ChallengeName,
		ComposeFile:   composeFile,
		Flag:          flag,
		IsDynamicFlag: challenge.IsDynamicFlag,
	})
	if err != nil {
		provisionLogger.Errorf("provisioning failed, %v", err)
		rows, dbErr := i.DB.MarkInstanceError(ctx, instance.ID)
		if dbErr != nil {
			provisionLogger.Errorf("cannot mark instance as errored, %v", dbErr)
			return
		}
		if rows == 0 {
			// the instance left pending while we were failing to
			// provision it. whoever moved it owns the cleanup
			provisionLogger.Warn("instance left pending before error could be recorded")
		}
		return
	}

	rows, dbErr := i.DB.MarkInstanceRunning(ctx, database.MarkInstanceRunningParams{
		ID:       instance.ID,
		Endpoint: endpoint.String(),
	})
	if dbErr != nil {
		provisionLogger.Errorf("cannot mark instance as running, %v", dbErr)
		i.teardown(instance.ID)
		return
	}
	if rows == 0 {
		// a destroy won the race while the environment was coming up.
		// the row is already terminal, so tear the environment down
		provisionLogger.Info("instance destroyed during provisioning, tearing down")
		i.teardown(instance.ID)
		return
	}

	provisionLogger.WithField("endpoint", endpoint.String()).Info("instance is running")
}

// teardown asks the provisioner to stop an instance's environment. Stop
// is idempotent, so racing callers are safe.
func (i *InstanceService) teardown(instanceID uuid.UUID) {
	timeout := i.ProvisionTimeout
	if timeout <= 0 {
		timeout = DefaultProvisionTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := i.Provisioner.Stop(ctx, instanceID); err != nil {
		log.Errorf("teardown of instance %v failed, %v", instanceID, err)
	}
}
