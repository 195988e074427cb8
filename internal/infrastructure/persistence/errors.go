package persistence

import (
	"errors"
	"strings"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes the engine reacts to
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

// translateError maps driver errors onto domain errors. Lock timeouts,
// deadlocks and serialization failures become shared.ErrTransient so the
// unit of work can retry them.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.CodeAlreadyExists, err.Error())
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return shared.NewDomainError(shared.CodeAlreadyExists, pgErr.Detail)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
			return errors.Join(shared.ErrTransient, err)
		}
		return err
	}

	// sqlite reports contention and constraint failures as plain text
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database table is locked"):
		return errors.Join(shared.ErrTransient, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return shared.NewDomainError(shared.CodeAlreadyExists, msg)
	}
	return err
}
