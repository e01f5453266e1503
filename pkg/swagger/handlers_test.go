package swagger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *mux.Router {
	router := mux.NewRouter()
	NewSwaggerHandlers().RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name        string
		path        string
		contentType string
	}{
		{"landing page", "/", "text/html; charset=utf-8"},
		{"docs alias", "/docs", "text/html; charset=utf-8"},
		{"load test page", "/load-test", "text/html; charset=utf-8"},
		{"OpenAPI YAML", "/openapi.yaml", "application/x-yaml"},
		{"OpenAPI JSON", "/openapi.json", "application/json"},
		{"Swagger UI", "/swagger-ui", "text/html; charset=utf-8"},
		{"API docs alias", "/api-docs", "text/html; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.NotEmpty(t, w.Body.Bytes())
		})
	}
}

func TestRouterMethodRestrictions(t *testing.T) {
	router := newRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/openapi.yaml", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServeOpenAPISpec(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest("GET", "/openapi.yaml", nil))

	assert.Equal(t, openapiSpec, w.Body.Bytes())
}

func TestServeOpenAPISpecJSON(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest("GET", "/openapi.json", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		OpenAPI string                            `json:"openapi"`
		Info    map[string]interface{}            `json:"info"`
		Paths   map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "LearnTracker API", doc.Info["title"])
	assert.Contains(t, doc.Paths, "/api/v1/analytics/courses")
	assert.Contains(t, doc.Paths["/api/v1/courses/{course_id}/lessons"], "post")
}

func TestOpenAPIJSON_ListsEveryOperation(t *testing.T) {
	raw, err := OpenAPIJSON()
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]struct {
			OperationID string `json:"operationId"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	var ops []string
	for _, methods := range doc.Paths {
		for _, op := range methods {
			if op.OperationID != "" {
				ops = append(ops, op.OperationID)
			}
		}
	}
	assert.ElementsMatch(t, []string{
		"create_student", "get_student", "get_student_progress",
		"create_course", "get_courses", "get_course", "enroll_student",
		"get_course_lessons", "create_lesson", "complete_lesson",
		"create_submission", "get_submissions", "get_course_analytics",
	}, ops)
}

func TestNormalize(t *testing.T) {
	in := map[interface{}]interface{}{
		200:   "ok",
		"key": []interface{}{map[interface{}]interface{}{"nested": true}},
	}

	out, err := normalize(in)
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"200":"ok","key":[{"nested":true}]}`, string(raw))
}

func TestServeSwaggerUI(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest("GET", "/swagger-ui", nil))

	body := w.Body.String()
	assert.Contains(t, body, "LearnTracker API - Swagger UI")
	assert.Contains(t, body, "swagger-ui-dist")
	assert.Contains(t, body, "/openapi.yaml")
	assert.Contains(t, body, "SwaggerUIBundle")
}

func TestIndexLinksToLoadTest(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	body := w.Body.String()
	assert.Contains(t, body, "LearnTracker API")
	assert.Contains(t, body, `href="/load-test"`)
	assert.Contains(t, body, `href="/metrics"`)
}

func TestLoadTestPage(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest("GET", "/load-test", nil))

	body := w.Body.String()
	assert.Contains(t, body, "/api/v1/analytics/courses")
	assert.Contains(t, body, "fetch(endpoint)")
}
