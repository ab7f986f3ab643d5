package errx

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"
)

// WrapPostgres maps catalog database errors. Connection, timeout and server-side
// failures all surface as CatalogUnavailable; a missing row becomes not found.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &AppError{Err: err, Status: http.StatusNotFound, Message: "catalog entry not found", Kind: KindNotFound}
	}

	appErr := CatalogUnavailable(err)
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr):
		appErr.Message = CatalogUnavailableMessage + " (" + string(pqErr.Code.Class()) + ")"
	case errors.Is(err, context.DeadlineExceeded):
		appErr.Status = http.StatusGatewayTimeout
	}
	return appErr
}
