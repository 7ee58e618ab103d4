package forwarder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"employee-forwarder/internal/config"
	"employee-forwarder/internal/employee"
	"employee-forwarder/internal/forwarder"
	"employee-forwarder/internal/middleware"
	"employee-forwarder/internal/migrate"
	"employee-forwarder/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// harness runs the real store behind an httptest server and the forwarding
// routes on a separate engine pointed at it.
type harness struct {
	store     *httptest.Server
	forwarder *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := connection.OpenSQLite(filepath.Join(t.TempDir(), "store.db"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, migrate.RunMigrations(sqlDB, config.DriverSQLite))

	logger := zap.NewNop()
	storeRouter := gin.New()
	storeRouter.Use(middleware.ContextLogger(logger))
	svc := employee.NewService(sqlDB, employee.NewRepository(db), logger)
	employee.RegisterRoutes(storeRouter, employee.NewHandler(svc, logger), nil)
	store := httptest.NewServer(storeRouter)

	client, err := forwarder.NewClient(store.URL, store.Client(), logger)
	require.NoError(t, err)

	fwdRouter := gin.New()
	fwdRouter.Use(middleware.ContextLogger(logger))
	forwarder.RegisterRoutes(fwdRouter, forwarder.NewHandler(forwarder.NewService(client), logger))

	t.Cleanup(func() {
		_ = client.Close()
		store.Close()
		_ = sqlDB.Close()
	})

	return &harness{store: store, forwarder: fwdRouter}
}

type rawResponse struct {
	status   int
	body     []byte
	location string
}

// direct calls the store itself.
func (h *harness) direct(t *testing.T, method, path string, body any) rawResponse {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.store.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.store.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	return rawResponse{status: resp.StatusCode, body: buf.Bytes(), location: resp.Header.Get("Location")}
}

// forward calls the forwarding routes.
func (h *harness) forward(t *testing.T, method, path string, body any) rawResponse {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.forwarder.ServeHTTP(w, req)

	return rawResponse{status: w.Code, body: w.Body.Bytes(), location: w.Header().Get("Location")}
}

func decodeEmployee(t *testing.T, data []byte) forwarder.Employee {
	t.Helper()
	var out forwarder.Employee
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func decodeEmployees(t *testing.T, data []byte) []forwarder.Employee {
	t.Helper()
	var out []forwarder.Employee
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func decodeError(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func salary(v float64) *float64 { return &v }

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func TestForwarder_ReadsMatchStore(t *testing.T) {
	h := newHarness(t)

	created := h.direct(t, http.MethodPost, "/employees", forwarder.EmployeeRequest{Name: "Alice", Salary: salary(1000)})
	require.Equal(t, http.StatusOK, created.status)
	alice := decodeEmployee(t, created.body)
	h.direct(t, http.MethodPost, "/employees", forwarder.EmployeeRequest{Name: "Bob", Salary: salary(2000)})

	t.Run("List", func(t *testing.T) {
		direct := h.direct(t, http.MethodGet, "/employees", nil)
		require.Equal(t, http.StatusOK, direct.status)
		want := decodeEmployees(t, direct.body)
		require.Len(t, want, 2)

		v1 := h.forward(t, http.MethodGet, "/v1/allEmployees", nil)
		assert.Equal(t, http.StatusOK, v1.status)
		assert.Equal(t, want, decodeEmployees(t, v1.body))

		v2 := h.forward(t, http.MethodGet, "/v2/allEmployees", nil)
		assert.Equal(t, direct.status, v2.status)
		assert.Equal(t, want, decodeEmployees(t, v2.body))

		v3 := h.forward(t, http.MethodGet, "/v3/allEmployees", nil)
		assert.Equal(t, direct.status, v3.status)
		assert.Equal(t, direct.body, v3.body)
	})

	t.Run("GetByID", func(t *testing.T) {
		path := idPath("/employees/", alice.ID)
		direct := h.direct(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, direct.status)
		want := decodeEmployee(t, direct.body)
		assert.Equal(t, alice, want)

		for _, version := range []string{"/v1", "/v2"} {
			res := h.forward(t, http.MethodGet, version+path, nil)
			assert.Equal(t, http.StatusOK, res.status, version)
			assert.Equal(t, want, decodeEmployee(t, res.body), version)
		}

		v3 := h.forward(t, http.MethodGet, "/v3"+path, nil)
		assert.Equal(t, direct.status, v3.status)
		assert.Equal(t, direct.body, v3.body)
	})

	t.Run("NotFoundIsRelayed", func(t *testing.T) {
		direct := h.direct(t, http.MethodGet, "/employees/999", nil)
		require.Equal(t, http.StatusNotFound, direct.status)

		for _, version := range []string{"/v1", "/v2", "/v3"} {
			res := h.forward(t, http.MethodGet, version+"/employees/999", nil)
			assert.Equal(t, http.StatusNotFound, res.status, version)
			assert.Equal(t, direct.body, res.body, version)
			assert.Equal(t, "NOT_FOUND", decodeError(t, res.body)["code"], version)
		}
	})

	t.Run("InvalidIDAnsweredByStore", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-3"} {
			direct := h.direct(t, http.MethodGet, "/employees/"+id, nil)
			require.Equal(t, http.StatusBadRequest, direct.status, id)

			for _, version := range []string{"/v1", "/v2", "/v3"} {
				res := h.forward(t, http.MethodGet, version+"/employees/"+id, nil)
				assert.Equal(t, direct.status, res.status, version+" "+id)
				assert.Equal(t, direct.body, res.body, version+" "+id)
			}
		}
	})
}

func TestForwarder_Create(t *testing.T) {
	h := newHarness(t)
	req := forwarder.EmployeeRequest{Name: "Alice", Salary: salary(1000)}

	t.Run("V1ReturnsLocation", func(t *testing.T) {
		res := h.forward(t, http.MethodPost, "/v1/employees", req)
		require.Equal(t, http.StatusCreated, res.status)
		assert.Empty(t, res.body)
		require.Regexp(t, `^`+h.store.URL+`/employees/\d+$`, res.location)

		path := res.location[len(h.store.URL):]
		stored := h.direct(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, stored.status)
		assert.Equal(t, "Alice", decodeEmployee(t, stored.body).Name)
	})

	t.Run("V2ReturnsBody", func(t *testing.T) {
		res := h.forward(t, http.MethodPost, "/v2/employees", req)
		require.Equal(t, http.StatusOK, res.status)
		got := decodeEmployee(t, res.body)
		assert.NotZero(t, got.ID)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, 1000.0, got.Salary)

		stored := h.direct(t, http.MethodGet, idPath("/employees/", got.ID), nil)
		assert.Equal(t, got, decodeEmployee(t, stored.body))
	})

	t.Run("V3ReturnsEntity", func(t *testing.T) {
		res := h.forward(t, http.MethodPost, "/v3/employees", req)
		require.Equal(t, http.StatusOK, res.status)
		got := decodeEmployee(t, res.body)

		stored := h.direct(t, http.MethodGet, idPath("/employees/", got.ID), nil)
		assert.Equal(t, got, decodeEmployee(t, stored.body))
	})

	t.Run("V4ReturnsExchange", func(t *testing.T) {
		res := h.forward(t, http.MethodPost, "/v4/employees", req)
		require.Equal(t, http.StatusOK, res.status)
		got := decodeEmployee(t, res.body)

		stored := h.direct(t, http.MethodGet, idPath("/employees/", got.ID), nil)
		assert.Equal(t, stored.body, res.body)
	})

	t.Run("ValidationErrorsAreRelayed", func(t *testing.T) {
		invalid := forwarder.EmployeeRequest{Salary: salary(-1)}
		direct := h.direct(t, http.MethodPost, "/employees", invalid)
		require.Equal(t, http.StatusBadRequest, direct.status)

		for _, version := range []string{"/v1", "/v2", "/v3", "/v4"} {
			res := h.forward(t, http.MethodPost, version+"/employees", invalid)
			assert.Equal(t, http.StatusBadRequest, res.status, version)
			assert.Equal(t, direct.body, res.body, version)
		}
	})

	t.Run("MalformedJSONRejectedLocally", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v2/employees", bytes.NewBufferString(`{"name":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.forwarder.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BIND_ERROR", decodeError(t, w.Body.Bytes())["code"])
	})
}

func TestForwarder_UpdateAndDelete(t *testing.T) {
	h := newHarness(t)

	created := h.direct(t, http.MethodPost, "/employees", forwarder.EmployeeRequest{Name: "Alice", Salary: salary(1000)})
	alice := decodeEmployee(t, created.body)
	path := idPath("/employees/", alice.ID)

	t.Run("V1UpdateReturnsBody", func(t *testing.T) {
		res := h.forward(t, http.MethodPut, "/v1"+path, forwarder.EmployeeRequest{Name: "Alice B", Salary: salary(1500)})
		require.Equal(t, http.StatusOK, res.status)
		got := decodeEmployee(t, res.body)

		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "Alice B", got.Name)
		assert.Equal(t, 1500.0, got.Salary)

		stored := h.direct(t, http.MethodGet, path, nil)
		assert.Equal(t, got, decodeEmployee(t, stored.body))
	})

	t.Run("V2UpdateReturnsExchange", func(t *testing.T) {
		res := h.forward(t, http.MethodPut, "/v2"+path, forwarder.EmployeeRequest{Name: "Alice C", Salary: salary(1600)})
		require.Equal(t, http.StatusOK, res.status)

		stored := h.direct(t, http.MethodGet, path, nil)
		assert.Equal(t, stored.body, res.body)
	})

	t.Run("InvalidIDAnsweredByStore", func(t *testing.T) {
		body := forwarder.EmployeeRequest{Name: "X", Salary: salary(1)}
		directPut := h.direct(t, http.MethodPut, "/employee/abc", body)
		directDelete := h.direct(t, http.MethodDelete, "/employees/abc", nil)
		require.Equal(t, http.StatusBadRequest, directPut.status)

		for _, version := range []string{"/v1", "/v2"} {
			put := h.forward(t, http.MethodPut, version+"/employees/abc", body)
			assert.Equal(t, directPut.status, put.status, version)
			assert.Equal(t, directPut.body, put.body, version)

			del := h.forward(t, http.MethodDelete, version+"/employees/abc", nil)
			assert.Equal(t, directDelete.status, del.status, version)
			assert.Equal(t, directDelete.body, del.body, version)
		}
	})

	t.Run("UpdateMissingIsRelayed", func(t *testing.T) {
		res := h.forward(t, http.MethodPut, "/v1/employees/999", forwarder.EmployeeRequest{Name: "X", Salary: salary(1)})
		assert.Equal(t, http.StatusNotFound, res.status)

		res = h.forward(t, http.MethodPut, "/v2/employees/999", forwarder.EmployeeRequest{Name: "X", Salary: salary(1)})
		assert.Equal(t, http.StatusNotFound, res.status)
	})

	t.Run("V1DeleteReturnsSnapshot", func(t *testing.T) {
		before := decodeEmployee(t, h.direct(t, http.MethodGet, path, nil).body)

		res := h.forward(t, http.MethodDelete, "/v1"+path, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, before, decodeEmployee(t, res.body))

		assert.Equal(t, http.StatusNotFound, h.direct(t, http.MethodGet, path, nil).status)
		assert.Equal(t, http.StatusNotFound, h.forward(t, http.MethodDelete, "/v1"+path, nil).status)
	})

	t.Run("V2DeleteReturnsExchange", func(t *testing.T) {
		other := decodeEmployee(t, h.direct(t, http.MethodPost, "/employees",
			forwarder.EmployeeRequest{Name: "Bob", Salary: salary(10)}).body)
		otherPath := idPath("/employees/", other.ID)
		before := h.direct(t, http.MethodGet, otherPath, nil)

		res := h.forward(t, http.MethodDelete, "/v2"+otherPath, nil)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, before.body, res.body)

		gone := h.forward(t, http.MethodDelete, "/v2"+otherPath, nil)
		assert.Equal(t, http.StatusNotFound, gone.status)
	})
}

func TestForwarder_CreatePassesIdempotencyKey(t *testing.T) {
	seen := make(chan string, 4)
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get(middleware.IdempotencyKeyHeader)
		w.Header().Set("Location", "/employees/1")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"Alice","salary":1000}`))
	}))
	defer store.Close()

	client, err := forwarder.NewClient(store.URL, store.Client(), zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	r := gin.New()
	r.Use(middleware.ContextLogger(zap.NewNop()))
	forwarder.RegisterRoutes(r, forwarder.NewHandler(forwarder.NewService(client), zap.NewNop()))

	for _, version := range []string{"/v1", "/v2", "/v3", "/v4"} {
		req := httptest.NewRequest(http.MethodPost, version+"/employees", bytes.NewBufferString(`{"name":"Alice","salary":1000}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.IdempotencyKeyHeader, "key"+version)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Less(t, w.Code, 300, version)
		assert.Equal(t, "key"+version, <-seen, version)
	}
}

func TestForwarder_UpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := forwarder.NewClient(baseURL, &http.Client{}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	r := gin.New()
	forwarder.RegisterRoutes(r, forwarder.NewHandler(forwarder.NewService(client), zap.NewNop()))

	for _, path := range []string{"/v1/allEmployees", "/v2/allEmployees", "/v3/allEmployees"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		body := decodeError(t, w.Body.Bytes())
		assert.Equal(t, "INTERNAL_ERROR", body["code"], path)
		assert.Equal(t, "Internal server error", body["message"], path)
	}
}
