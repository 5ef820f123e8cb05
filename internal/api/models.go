package api

import (
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/instance_service"
	"github.com/FloatCTF/cdm/internal/service/scoreboard_service"
	"github.com/FloatCTF/cdm/internal/service/submission_service"
)

// Api owns the HTTP handlers and delegates everything to the services.
type Api struct {
	InstanceServiceConfig   *instance_service.InstanceService
	SubmissionServiceConfig *submission_service.SubmissionService
	ScoreboardServiceConfig *scoreboard_service.ScoreboardService
	AuditServiceConfig      *audit_service.AuditService
}
