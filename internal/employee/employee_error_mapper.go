package employee

import (
	"errors"
	"net/http"
	"strings"

	employeeerrors "employee-forwarder/internal/employee/errors"
	"employee-forwarder/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// integrity constraint violation class, see postgres appendix A
const pgIntegrityClass = "23"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return employeeerrors.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, pgIntegrityClass) {
		return constraintViolation(err)
	}

	// sqlite reports constraint failures as plain text
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "constraint failed") || strings.Contains(errMsg, "duplicate key value") {
		return constraintViolation(err)
	}

	return err
}

func constraintViolation(err error) error {
	return apperror.Wrap(
		err,
		employeeerrors.ErrConstraintViolation.Code,
		employeeerrors.ErrConstraintViolation.Message,
		http.StatusBadRequest,
	)
}
