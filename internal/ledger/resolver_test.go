package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/wppledger/internal/store"
)

// failingExec reads through to a real backend but rejects every write.
type failingExec struct {
	store.Conn
	execs int
}

func (f *failingExec) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	f.execs++
	return nil, errors.New("disk I/O error")
}

func TestResolveMergeFailureKeepsExistingID(t *testing.T) {
	l, db := testLedger(t)
	ctx := context.Background()

	id, err := l.Resolve(ctx, "123456789012345@lid", nil, nil)
	require.NoError(t, err)

	conn := &failingExec{Conn: db}
	got, err := l.resolveOn(ctx, conn, "123456789012345@lid", "5511988887777", "Ana")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, 2, conn.execs, "phone and name updates should both be attempted")

	c, err := l.GetContact(ctx, "123456789012345@lid")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.Phone)
	assert.Empty(t, c.Name)
}

func TestResolveInsertFailureIsUnresolved(t *testing.T) {
	l, db := testLedger(t)

	_, err := l.resolveOn(context.Background(), &failingExec{Conn: db}, "5511@s.whatsapp.net", "", "")
	assert.ErrorIs(t, err, ErrUnresolvedContact)
}
