package circles

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-circles/internal/clock"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	svc := NewService(NewMemoryRepository(), clock.NewFake(t0), zerolog.Nop())
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-User"); id != "" {
				r = r.WithContext(WithUser(r.Context(), CurrentUser{ID: id}))
			}
			next.ServeHTTP(w, r)
		})
	})
	RegisterRoutes(api, NewHandler(svc))
	return router
}

func call(t *testing.T, router *mux.Router, method, path, user string, body interface{}) (int, utils.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out utils.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return rec.Code, out
}

func TestHandlers_CircleLifecycle(t *testing.T) {
	router := newRouter(t)

	code, body := call(t, router, http.MethodPost, "/api/v1/circles", "u1", CreateCircleRequest{Name: "Pair", MaxMembers: 2, Tags: []string{"Calm"}})
	require.Equal(t, http.StatusCreated, code)
	id := body.Data.(map[string]interface{})["id"].(string)

	code, _ = call(t, router, http.MethodPost, "/api/v1/circles/"+id+"/join", "u2", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, router, http.MethodPost, "/api/v1/circles/"+id+"/join", "u3", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, router, http.MethodPost, "/api/v1/circles/"+id+"/leave", "u3", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, router, http.MethodPost, "/api/v1/circles/"+id+"/leave", "u2", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = call(t, router, http.MethodGet, "/api/v1/circles/"+id, "u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body.Data.(map[string]interface{})["current_members"])
}

func TestHandlers_Validation(t *testing.T) {
	router := newRouter(t)

	code, _ := call(t, router, http.MethodPost, "/api/v1/circles", "u1", CreateCircleRequest{Name: "x", MaxMembers: 5})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, router, http.MethodPost, "/api/v1/circles", "", CreateCircleRequest{Name: "Valid", MaxMembers: 5})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, router, http.MethodGet, "/api/v1/circles/missing", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}
