package app_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"employee-forwarder/internal/app"
	"employee-forwarder/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildApp_SQLiteRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// the forwarder calls back into this same server
	srv := httptest.NewUnstartedServer(nil)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Port: "0"},
		Database: config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "app.db"),
			MaxRetries:  1,
			AutoMigrate: true,
		},
		Forwarder: config.ForwarderConfig{BaseURL: "http://" + srv.Listener.Addr().String()},
	}

	router := gin.New()
	cleanup, err := app.BuildApp(router, cfg)
	require.NoError(t, err)

	srv.Config.Handler = router
	srv.Start()
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})

	resp, err := http.Post(srv.URL+"/v1/employees", "application/json", strings.NewReader(`{"name":"Alice","salary":1000}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, srv.URL+"/employees/"), location)

	resp, err = http.Get(location)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var got struct {
		ID     int64   `json:"id"`
		Name   string  `json:"name"`
		Salary float64 `json:"salary"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, 1000.0, got.Salary)

	resp2, err := http.Get(srv.URL + "/v2/allEmployees")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestBuildApp_ForwardedCallsChargeClientOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := httptest.NewUnstartedServer(nil)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Port: "0"},
		Database: config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "app.db"),
			MaxRetries:  1,
			AutoMigrate: true,
		},
		Forwarder: config.ForwarderConfig{BaseURL: "http://" + srv.Listener.Addr().String()},
		RateLimit: config.RateLimitConfig{
			RPS:         0.1,
			Burst:       2,
			StoreExempt: []string{"127.0.0.0/8", "::1/128"},
		},
	}

	router := gin.New()
	cleanup, err := app.BuildApp(router, cfg)
	require.NoError(t, err)

	srv.Config.Handler = router
	srv.Start()
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})

	get := func(clientIP string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/v2/allEmployees", nil)
		require.NoError(t, err)
		req.Header.Set("X-Forwarded-For", clientIP)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	codes := map[int]int{}
	for i := 1; i <= 20; i++ {
		codes[get(fmt.Sprintf("198.51.100.%d", i))]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 20}, codes)

	// a single client still runs into its own limit
	assert.Equal(t,
		[]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		[]int{get("203.0.113.9"), get("203.0.113.9"), get("203.0.113.9")},
	)
}

func TestBuildApp_InvalidForwarderURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "app.db"),
			MaxRetries:  1,
			AutoMigrate: true,
		},
		Forwarder: config.ForwarderConfig{BaseURL: "::not-a-url"},
	}

	_, err := app.BuildApp(gin.New(), cfg)
	assert.Error(t, err)
}
