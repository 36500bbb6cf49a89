package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/store"
)

func TestMirroredWritesReachBothBackends(t *testing.T) {
	primary := testEngine(t, "primary.db")
	mirror := testEngine(t, "mirror.db")
	l := New(store.NewSelector(primary, mirror, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	// Give the mirror a different id sequence so surrogate ids diverge.
	_, err := mirror.ExecContext(ctx, `INSERT INTO contacts (jid) VALUES ('unrelated@s.whatsapp.net')`)
	require.NoError(t, err)

	res, err := l.InsertMessage(ctx, inbound("m1", "5511@s.whatsapp.net", "hi"))
	require.NoError(t, err)
	assert.Equal(t, store.MirrorApplied, res.Mirror.Status)

	_, err = l.AddComment(ctx, "m1", "mirrored note")
	require.NoError(t, err)
	require.NoError(t, l.UpdateStatus(ctx, "m1", StatusRead))

	var status string
	require.NoError(t, mirror.QueryRowContext(ctx, `SELECT status FROM messages WHERE message_id = ?`, "m1").Scan(&status))
	assert.Equal(t, StatusRead, status)
	assert.Equal(t, 1, countRows(t, mirror, "message_comments"))

	var mirrorContact int64
	require.NoError(t, mirror.QueryRowContext(ctx,
		`SELECT c.id FROM messages m JOIN contacts c ON c.id = m.contact_id WHERE c.jid = ?`, "5511@s.whatsapp.net").Scan(&mirrorContact))
	assert.NotEqual(t, res.ContactID, mirrorContact)
}

func TestMirrorFailureDoesNotFailPrimary(t *testing.T) {
	primary := testEngine(t, "primary.db")
	mirror, err := store.OpenSQLite(filepath.Join(t.TempDir(), "broken.db"))
	require.NoError(t, err)
	require.NoError(t, mirror.Close())

	l := New(store.NewSelector(primary, mirror, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	res, err := l.InsertMessage(ctx, inbound("m1", "5511@s.whatsapp.net", "hi"))
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, store.MirrorFailed, res.Mirror.Status)
	assert.Error(t, res.Mirror.Err)

	id, err := l.Resolve(ctx, "5511@s.whatsapp.net", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, res.ContactID, id)

	m, err := l.GetMessage(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, m)
}
