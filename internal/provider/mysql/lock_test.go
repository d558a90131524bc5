package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockKey(t *testing.T) {
	a, err := LockKey("app:secret@tcp(db.internal:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "tcp(db.internal:3306)/shop", a)

	b, err := LockKey("report:other@tcp(db.internal:3306)/shop")
	require.NoError(t, err)
	assert.Equal(t, a, b, "credentials and parameters do not change the target")

	c, err := LockKey("app:secret@tcp(db.internal:3306)/billing")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = LockKey("app:secret@tcp(db.internal:3306")
	assert.Error(t, err)
}
