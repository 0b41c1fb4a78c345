package projection

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperr "github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/errors"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func doGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHandleAccounts(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/accounts")
	require.Equal(t, http.StatusOK, w.Code)

	var resp AccountsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"SHIBUYA", "UMEDA", "SAPPORO"}, resp.Accounts)
}

func TestHandleWindow_OK(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/windows/SHIBUYA?granularity=day&date=2025-01-16")
	require.Equal(t, http.StatusOK, w.Code)

	var resp WindowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SHIBUYA", resp.Handle)
	assert.Len(t, resp.Buckets, 3)
}

func TestHandleWindow_UnknownAccountIs404(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/windows/NOBODY?date=2025-01-16")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, httperr.HttpUnknownAccountError, resp.ErrorType)
}

func TestHandleWindow_BadGranularityIs400(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/windows/SHIBUYA?granularity=century")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, httperr.HttpInvalidQueryError, resp.ErrorType)
}

func TestHandleSummary_OK(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/summary?granularity=day&date=2025-01-16")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Accounts, 3)
	require.NotNil(t, resp.Total)
	assert.Equal(t, int64(175), resp.Total.Current)
}

func TestHandleRankings_BadSizeIs400(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/rankings?size=zero")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRankings_OK(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/rankings?granularity=day&date=2025-01-16&size=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RankingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Top, 1)
	assert.Equal(t, "SHIBUYA", resp.Top[0].Handle)
}

func TestHandleRollup_NotBuiltIs404(t *testing.T) {
	r := newTestRouter(t)

	w := doGet(t, r, "/v1/rollups/SHIBUYA")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, httperr.HttpNotFoundError, resp.ErrorType)
}
