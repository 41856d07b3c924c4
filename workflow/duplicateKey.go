package workflow

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
