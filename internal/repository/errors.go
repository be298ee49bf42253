package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

// pgUndefinedColumn is the Postgres error code raised when a query names a
// column the schema does not have.
const pgUndefinedColumn = "42703"

// wrapDBError annotates a driver error, promoting undefined-column failures to
// the schema-mismatch sentinel so operators get an actionable diagnostic.
func wrapDBError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUndefinedColumn {
		return appErrors.Wrap(err, appErrors.ErrSchemaMismatch.Code, appErrors.ErrSchemaMismatch.Status, appErrors.ErrSchemaMismatch.Message)
	}
	if strings.Contains(strings.ToLower(err.Error()), "column") {
		return appErrors.Wrap(err, appErrors.ErrSchemaMismatch.Code, appErrors.ErrSchemaMismatch.Status, appErrors.ErrSchemaMismatch.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
