package instance_service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
)

// StartExpirySweep launches the background loop that reaps running
// instances past their end_at. It returns immediately, the loop stops
// when ctx is cancelled.
func (i *InstanceService) StartExpirySweep(ctx context.Context) {
	interval := i.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Infof("expiry sweep started with interval %v", interval)
		for {
			select {
			case <-ctx.Done():
				log.Info("expiry sweep stopped")
				return
			case <-ticker.C:
				if err := i.RunSweep(ctx); err != nil {
					// next tick retries, expiry only needs to happen
					// eventually
					log.Errorf("expiry sweep failed, %v", err)
				}
			}
		}
	}()
}

// RunSweep performs one sweep pass. Every expired instance is claimed by
// a single conditional update, so a user destroy racing the sweep sees
// exactly one of the two win.
func (i *InstanceService) RunSweep(ctx context.Context) error {
	expired, err := i.DB.ExpireInstances(ctx)
	if err != nil {
		return errors.Join(ctf_errors.ErrInternal, err)
	}

	for _, dbInstance := range expired {
		log.WithFields(log.Fields{
			"instance_id": dbInstance.ID,
			"team_id":     dbInstance.TeamID,
			"end_at":      dbInstance.EndAt,
		}).Info("instance expired")

		auditErr := i.AuditServiceConfig.Append(ctx, audit_service.Record{
			ActionType:  database.ActionDestroy,
			TeamID:      &dbInstance.TeamID,
			ChallengeID: &dbInstance.ChallengeID,
			InstanceID:  &dbInstance.ID,
			Detail:      "instance expired, destroyed by sweep",
		})
		if auditErr != nil {
			log.Errorf("expired instance %v but audit append failed, %v", dbInstance.ID, auditErr)
		}

		go i.teardown(dbInstance.ID)
	}
	return nil
}
