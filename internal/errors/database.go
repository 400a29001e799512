package errors

import (
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// PostgreSQL error codes
const (
	// Check violation (constraint failed)
	PgErrorCodeCheckViolation = "23514"
	// Unique violation
	PgErrorCodeUniqueViolation = "23505"
	// Foreign key violation
	PgErrorCodeForeignKeyViolation = "23503"
	// Not null violation
	PgErrorCodeNotNullViolation = "23502"
	// Lock not available (FOR UPDATE NOWAIT failed)
	PgErrorCodeLockNotAvailable = "55P03"
)

// Constraint names that carry a business meaning
const (
	ConstraintClanTagUnique        = "clan_tag_key"
	ConstraintClanNameUnique       = "clan_name_key"
	ConstraintPendingRequestUnique = "clan_join_request_pending_idx"
)

// HandleDatabaseError converts driver errors into business errors where the
// database carries the rule, and wraps everything else with the operation name
func HandleDatabaseError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if _, ok := GetClanError(err); ok {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return NotFound("Record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return handlePostgreSQLError(pgErr, operation)
	}

	return errors.Wrapf(err, "database error during %s", operation)
}

// handlePostgreSQLError handles specific PostgreSQL error codes
func handlePostgreSQLError(pgErr *pgconn.PgError, operation string) error {
	switch pgErr.Code {
	case PgErrorCodeUniqueViolation:
		switch pgErr.ConstraintName {
		case ConstraintClanTagUnique:
			return Conflict("Tag already taken")
		case ConstraintClanNameUnique:
			return Conflict("Name already taken")
		case ConstraintPendingRequestUnique:
			return Conflict("Join request already pending")
		}
		return Conflict("Duplicate " + operation)

	case PgErrorCodeForeignKeyViolation:
		return NotFound("Referenced record not found")

	case PgErrorCodeLockNotAvailable:
		return Conflict("Clan is currently being modified. Please retry.")

	case PgErrorCodeCheckViolation:
		return Validation("Constraint violation during " + operation)

	case PgErrorCodeNotNullViolation:
		return errors.Errorf("missing required field during %s: %s", operation, pgErr.Message)

	default:
		return errors.Errorf("database error during %s: %s", operation, pgErr.Message)
	}
}
