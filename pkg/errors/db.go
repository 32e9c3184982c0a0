package errors

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// IsNotFound checks if the error is a record-not-found error from GORM.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey checks if the error is a MySQL duplicate key violation.
func IsDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// IsDBUnavailable checks whether a database error looks like an
// infrastructure failure rather than a data problem. Such errors are
// treated as StorageError by the cache and audit paths.
func IsDBUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// Data-shape errors carry a MySQL code; connectivity does not.
		return false
	}
	return isConnectionError(err.Error())
}
