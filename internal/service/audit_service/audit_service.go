package audit_service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/user_service"
)

var validActions = map[database.ActionType]bool{
	database.ActionStart:      true,
	database.ActionDestroy:    true,
	database.ActionSubmit:     true,
	database.ActionLogin:      true,
	database.ActionJoinTeam:   true,
	database.ActionCreateTeam: true,
}

// Append writes one entry to the ledger. Callers on hot paths treat a
// failure here as non-fatal and log it, the ledger is a trace and must
// never veto the operation it describes.
func (a *AuditService) Append(ctx context.Context, record Record) error {
	if !validActions[record.ActionType] {
		err := fmt.Errorf(
			"%w, unknown audit action type %s",
			ctf_errors.ErrInternal,
			record.ActionType,
		)
		log.Error(err)
		return err
	}

	_, err := a.DB.CreateLogEntry(ctx, database.CreateLogEntryParams{
		ActionType:  record.ActionType,
		UserID:      record.UserID,
		TeamID:      record.TeamID,
		ChallengeID: record.ChallengeID,
		InstanceID:  record.InstanceID,
		Detail:      record.Detail,
	})
	if err != nil {
		log.Errorf("failed to append audit entry %v, %v", record.ActionType, err)
		return errors.Join(ctf_errors.ErrInternal, err)
	}
	return nil
}

// GetLogs returns filtered ledger entries, newest first. Admin only.
func (a *AuditService) GetLogs(
	ctx context.Context,
	filter LogFilter,
) ([]LogEntry, error) {
	claims, err := service.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := a.UserServiceConfig.FetchUserFromClaims(ctx)
	if err != nil {
		return nil, err
	}
	err = a.UserServiceConfig.AuthorizeUserRole(
		ctx,
		user,
		user_service.RoleAdmin,
		fmt.Sprintf("user %s tried to read the audit log", claims.UserName),
	)
	if err != nil {
		return nil, err
	}

	if err = service.ValidateInput(filter); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	if filter.ActionType != nil && !validActions[*filter.ActionType] {
		return nil, fmt.Errorf(
			"%w, unknown action type %s",
			ctf_errors.ErrInvalidRequest,
			*filter.ActionType,
		)
	}

	dbEntries, err := a.DB.GetLogEntries(ctx, database.GetLogEntriesParams{
		ActionType:  filter.ActionType,
		UserID:      filter.UserID,
		TeamID:      filter.TeamID,
		ChallengeID: filter.ChallengeID,
		Limit:       limit,
	})
	if err != nil {
		log.Errorf("failed to fetch audit entries, %v", err)
		return nil, errors.Join(ctf_errors.ErrInternal, err)
	}

	entries := make([]LogEntry, 0, len(dbEntries))
	for _, e := range dbEntries {
		entries = append(entries, LogEntry{
			ID:          e.ID,
			ActionType:  e.ActionType,
			UserID:      e.UserID,
			TeamID:      e.TeamID,
			ChallengeID: e.ChallengeID,
			InstanceID:  e.InstanceID,
			Detail:      e.Detail,
			CreatedAt:   e.CreatedAt,
		})
	}
	return entries, nil
}
