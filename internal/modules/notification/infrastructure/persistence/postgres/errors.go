package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
)

// Postgres SQLSTATEs that clear up once the competing transaction finishes.
var transientCodes = map[pq.ErrorCode]bool{
	"55P03": true, // lock_not_available
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// sqlite result codes for a busy or locked database.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// classify wraps transient lock contention in *domain.RetryableStoreError
// and returns every other error unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return &domain.RetryableStoreError{Err: err}
	}
	return err
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientCodes[pqErr.Code]
	}

	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		code := coded.Code() & 0xff
		if code == sqliteBusy || code == sqliteLocked {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "resource busy")
}
