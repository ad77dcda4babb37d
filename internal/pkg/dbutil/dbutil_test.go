package dbutil

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize(t *testing.T) {
	query, args := Finalize("SELECT a FROM t WHERE x=? AND y IN (?,?) LIMIT ?,?", []interface{}{1, 2, 3, 0, 10})
	require.Equal(t, "SELECT a FROM t WHERE x=$1 AND y IN ($2,$3) LIMIT $4 OFFSET $5", query)
	require.Equal(t, []interface{}{1, 2, 3, 10, 0}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(fmt.Errorf("other")))
}
