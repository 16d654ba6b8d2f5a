package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	require.True(t, isUniqueViolation(unique))
	require.False(t, isUniqueViolation(fk))
	require.True(t, isForeignKeyViolation(fk))
	require.False(t, isForeignKeyViolation(unique))
	require.False(t, isUniqueViolation(errors.New("23505")))
	require.False(t, isUniqueViolation(nil))
}

func TestNullableString(t *testing.T) {
	require.Nil(t, nullableString(""))
	require.Equal(t, "x", *nullableString("x"))
	require.Equal(t, "", derefString(nil))
	require.Equal(t, "y", derefString(nullableString("y")))
}
