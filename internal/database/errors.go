package database

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes that indicate a transient conflict worth retrying:
// serialization failure, deadlock detected, lock not available.
var transientPqCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

// isTransient reports whether err is a Postgres error that a fresh
// transaction attempt could resolve.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPqCodes[pqErr.Code]
	}
	return false
}
