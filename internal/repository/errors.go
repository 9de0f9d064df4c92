package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate は一意制約違反を示す。
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation pq.ErrorCode = "23505"

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
