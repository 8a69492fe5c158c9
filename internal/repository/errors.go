package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert or update hits a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrCapacityReached is returned when a course has no free seat left.
	ErrCapacityReached = errors.New("course capacity reached")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// translate maps driver constraint errors onto repository sentinels.
func translate(err error) error {
	switch pqCode(err) {
	case pqUniqueViolation:
		return ErrDuplicate
	default:
		return err
	}
}

// IsForeignKeyViolation reports whether err came from a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

func paginate(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

func sortOrder(raw string) string {
	switch raw {
	case "ASC", "asc":
		return "ASC"
	}
	return "DESC"
}
