package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertSnapshot))
	mock.ExpectPrepare(regexp.QuoteMeta(queryGetSnapshot))
	mock.ExpectPrepare(regexp.QuoteMeta(queryListSnapshots))

	a, err := newAdapterWithDB(db)
	require.NoError(t, err)
	return a, mock
}

func TestAdapter_PutReportsChange(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		wantChanged bool
	}{
		{name: "new content writes", affected: 1, wantChanged: true},
		{name: "identical content skips", affected: 0, wantChanged: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, mock := newMockAdapter(t)
			doc := map[string]any{"followers": 123}
			content, err := json.Marshal(doc)
			require.NoError(t, err)

			mock.ExpectExec(regexp.QuoteMeta(queryUpsertSnapshot)).
				WithArgs("timeseries/SHIBUYA", content).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			changed, err := a.Put(context.Background(), "timeseries/SHIBUYA", doc)
			require.NoError(t, err)
			require.Equal(t, tc.wantChanged, changed)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_GetUnmarshalsContent(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetSnapshot)).
		WithArgs("account/SHIBUYA/2025-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow([]byte(`{"followers": 42}`)))

	var out struct {
		Followers int64 `json:"followers"`
	}
	require.NoError(t, a.Get(context.Background(), "account/SHIBUYA/2025-01-15", &out))
	require.Equal(t, int64(42), out.Followers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetMissingMapsToErrNotFound(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetSnapshot)).
		WithArgs("account/NOPE/2025-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"content"}))

	var out map[string]any
	err := a.Get(context.Background(), "account/NOPE/2025-01-15", &out)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListScansKeys(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryListSnapshots)).
		WithArgs("posts/SHIBUYA").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("posts/SHIBUYA/2025/01/14").
			AddRow("posts/SHIBUYA/2025/01/15"))

	keys, err := a.List(context.Background(), "posts/SHIBUYA")
	require.NoError(t, err)
	require.Equal(t, []string{"posts/SHIBUYA/2025/01/14", "posts/SHIBUYA/2025/01/15"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}
