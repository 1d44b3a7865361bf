package audit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/coursegate/audit"
)

type execCall struct {
	sql  string
	args []any
}

type fakePG struct {
	calls   []execCall
	tag     string
	execErr error
}

func (f *fakePG) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func (f *fakePG) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("connection refused")
}

func TestPostgresTrailAppend(t *testing.T) {
	t.Parallel()
	db := &fakePG{tag: "INSERT 0 1"}
	trail := audit.NewPostgresTrail(db)

	require.NoError(t, trail.EnsureSchema(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS session_events")

	ev := newEvent(audit.EventInvalidateAll, "alice", "s9")
	ev.Reason = "password changed"
	ev.Metadata = map[string]string{"actor_ip": "10.1.1.1"}
	require.NoError(t, trail.Append(context.Background(), ev))

	require.Len(t, db.calls, 2)
	insert := db.calls[1]
	assert.True(t, strings.HasPrefix(strings.TrimSpace(insert.sql), "INSERT INTO session_events"))
	require.Len(t, insert.args, 9)
	assert.Equal(t, ev.ID, insert.args[0])
	assert.Equal(t, "s9", insert.args[1])
	assert.Equal(t, "invalidate_all", insert.args[3])
	assert.Equal(t, "password changed", insert.args[6])
	assert.JSONEq(t, `{"actor_ip":"10.1.1.1"}`, string(insert.args[7].([]byte)))
}

func TestPostgresTrailFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	down := &fakePG{execErr: errors.New("connection reset")}
	require.Error(t, audit.NewPostgresTrail(down).Append(ctx, newEvent(audit.EventLogin, "u", "s")))

	noop := &fakePG{tag: "INSERT 0 0"}
	require.Error(t, audit.NewPostgresTrail(noop).Append(ctx, newEvent(audit.EventLogin, "u", "s")))

	_, err := audit.NewPostgresTrail(noop).Recent(ctx, audit.Filter{UserID: "u"})
	require.Error(t, err)
}
