// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versefi/verse/health"
)

func initAPIServer(t *testing.T, tracker *health.Health) *httptest.Server {
	router := mux.NewRouter()
	New(tracker).Mount(router, "/health")

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	r, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}

func TestHealthNotBootstrapped(t *testing.T) {
	ts := initAPIServer(t, health.New())

	var status health.Status
	respBody, statusCode := httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(respBody, &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, http.StatusServiceUnavailable, statusCode)
	assert.Nil(t, status.LastCheckpoint)
}

func TestHealthAfterCheckpoint(t *testing.T) {
	tracker := health.New()
	tracker.BootstrapStatus(true)
	tracker.MarkCheckpoint(12345)
	ts := initAPIServer(t, tracker)

	var status health.Status
	respBody, statusCode := httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(respBody, &status))
	assert.True(t, status.Healthy)
	assert.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, uint64(12345), status.SupplyCursor)
	require.NotNil(t, status.LastCheckpoint)
}

func TestHealthMaxStalenessQuery(t *testing.T) {
	tracker := health.New()
	tracker.BootstrapStatus(true)
	tracker.MarkCheckpoint(1)
	ts := initAPIServer(t, tracker)

	// a zero-width staleness window makes any checkpoint stale
	_, statusCode := httpGet(t, ts.URL+"/health?maxStaleness=1ns")
	assert.Equal(t, http.StatusServiceUnavailable, statusCode)

	_, statusCode = httpGet(t, ts.URL+"/health?maxStaleness=1h")
	assert.Equal(t, http.StatusOK, statusCode)
}
