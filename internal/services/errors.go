package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrProfessionalNotFound signals a lookup for a professional that does not exist.
var ErrProfessionalNotFound = errors.New("professional not found")

// ErrRequestNotFound signals a lookup for a service request that does not exist.
var ErrRequestNotFound = errors.New("service request not found")

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
// The notification dedup path relies on it to resolve insert races silently.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
