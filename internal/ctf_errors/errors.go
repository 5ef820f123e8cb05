package ctf_errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const (
	CodeUniqueConstraint     = "23505"
	CodeForeignKeyConstraint = "23503"
)

var (
	ErrInternal         = errors.New("internal service error. please try again later")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnAuthorized     = errors.New("user not allowed to perform this action")
	ErrNotFound         = errors.New("entity not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrConflict         = errors.New("an active instance already exists for this team and challenge")
	ErrNoActiveInstance = errors.New("no running instance exists for this team and challenge")
	ErrAlreadySolved    = errors.New("challenge already solved by this user")
	ErrProvisioner      = errors.New("provisioner failure")
	ErrTeamBanned       = errors.New("team is banned")
	ErrTaskLaunch       = errors.New("failed to launch task")
	ErrTaskKill         = errors.New("cannot kill task")
)

// HandleDBErrors converts raw database errors into service errors.
// errMsgs maps a pg error code to a map of constraint names and their
// user facing messages.
func HandleDBErrors(
	err error,
	errMsgs map[string]map[string]string,
	contextMessage string,
) error {
	// assume its an internal error first
	err = fmt.Errorf(
		"%w, %s, %w",
		ErrInternal,
		contextMessage,
		err,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		log.Error(fmt.Sprintf("%s, %v", contextMessage, ErrNotFound))
		return ErrNotFound
	}

	// check if its a pg error
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		log.Error(err)
		return err
	}

	if errMsgs == nil {
		log.Warnf("got null errMsgs")
		log.Error(err)
		return err
	}

	// check if its a foreign key error
	if pgErr.Code == CodeForeignKeyConstraint {
		msgForeignKey, ok := errMsgs[CodeForeignKeyConstraint]
		if !ok {
			log.Warnf("no msg map found for foreign key constraint.")
			return fmt.Errorf(
				"%w, %s",
				ErrInvalidRequest,
				pgErr.Detail,
			)
		}
		return handleConstraintError(pgErr, msgForeignKey, ErrInvalidRequest)
	}

	// check if its a unique key error
	if pgErr.Code == CodeUniqueConstraint {
		msgUniqueConstraint, ok := errMsgs[CodeUniqueConstraint]
		if !ok {
			log.Warnf("no msg map found for unique key constraint.")
			return fmt.Errorf(
				"%w, %s",
				ErrInvalidRequest,
				pgErr.Detail,
			)
		}
		return handleConstraintError(pgErr, msgUniqueConstraint, ErrInvalidRequest)
	}

	// unknown error
	log.Error(err)
	return err
}

func handleConstraintError(
	pgErr *pgconn.PgError,
	msgs map[string]string,
	sentinel error,
) error {
	msg, ok := msgs[pgErr.ConstraintName]
	if !ok {
		log.Warnf(
			"unknown constraint violation %s",
			pgErr.ConstraintName,
		)
		msg = pgErr.Detail
	}
	err := fmt.Errorf(
		"%w, %s",
		sentinel,
		msg,
	)
	log.Error(err)
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation
// on the named constraint. Used where a violation is an expected outcome
// rather than a failure, like the active instance index.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == CodeUniqueConstraint && pgErr.ConstraintName == constraint
}
