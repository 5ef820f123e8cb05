package submission_service

import (
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/challenge_service"
	"github.com/FloatCTF/cdm/internal/service/scoreboard_service"
	"github.com/FloatCTF/cdm/internal/service/user_service"
)

type SubmissionService struct {
	DB                      database.Querier
	UserServiceConfig       *user_service.UserService
	ChallengeServiceConfig  *challenge_service.ChallengeService
	AuditServiceConfig      *audit_service.AuditService
	ScoreboardServiceConfig *scoreboard_service.ScoreboardService
}

type SubmitFlagRequest struct {
	ChallengeID int32  `json:"challenge_id" validate:"required,gte=1"`
	Flag        string `json:"flag" validate:"required,max=256"`
}

// SubmitFlagResult reports the grading outcome. AlreadySolved marks a
// correct submission that earned nothing because the user solved the
// challenge before.
type SubmitFlagResult struct {
	Correct       bool  `json:"correct"`
	AlreadySolved bool  `json:"already_solved"`
	PointsAwarded int32 `json:"points_awarded"`
}
