package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrSerializationFailure marks transient postgres conflicts (serialization
// failure, deadlock) that the caller may retry.
var ErrSerializationFailure = errors.New("transaction serialization failure")

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// wrapSerialization maps pq serialization/deadlock codes onto
// ErrSerializationFailure so services can retry without inspecting pq.
func wrapSerialization(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", ErrSerializationFailure, err)
		}
	}
	return err
}
