package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type routeTokens map[string]*models.JWTClaims

func (r routeTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := r[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func buildTestRouter(audit *auditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	tokens := routeTokens{
		"admin":   {UserID: "u-admin", Role: models.RoleAdmin},
		"student": {UserID: "u-student", Role: models.RoleStudent, StudentID: "st-1"},
	}
	RegisterRoutes(r, "/api/v1", Handlers{
		Auth:        NewAuthHandler(&fakeAuthSrv{}),
		Students:    NewStudentHandler(&fakeStudentSrv{}),
		Courses:     NewCourseHandler(&fakeCourseSrv{}, fakeCounter{n: 3}),
		Enrollments: NewEnrollmentHandler(&fakeEnrollmentSrv{}),
		Results:     NewResultHandler(&fakeResultSrv{}),
		Reports:     NewReportHandler(&fakeReportSrv{}),
		Portal:      NewPortalHandler(&fakePortalSrv{}),
		Exports:     NewExportHandler(&fakeExportJobs{}, &fakeRenderer{}),
		Metrics:     NewMetricsHandler(nil, nil),
	}, RouteDeps{Tokens: tokens, Audit: audit})
	return r
}

func serveRouter(r *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesAccessPolicy(t *testing.T) {
	r := buildTestRouter(&auditRecorder{})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"login is public", http.MethodPost, "/api/v1/auth/login", "", http.StatusOK},
		{"admin api needs token", http.MethodGet, "/api/v1/students", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/students", "forged", http.StatusUnauthorized},
		{"student cannot list students", http.MethodGet, "/api/v1/students", "student", http.StatusForbidden},
		{"admin lists students", http.MethodGet, "/api/v1/students", "admin", http.StatusOK},
		{"static segment beats id", http.MethodGet, "/api/v1/courses/departments", "admin", http.StatusOK},
		{"admin cannot use portal", http.MethodGet, "/api/v1/portal", "admin", http.StatusForbidden},
		{"student uses portal", http.MethodGet, "/api/v1/portal/gpa", "student", http.StatusOK},
		{"me for any role", http.MethodGet, "/api/v1/auth/me", "student", http.StatusOK},
		{"render route", http.MethodGet, "/api/v1/exports/render/course_roster/c-1", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := []byte(nil)
			if tc.method == http.MethodPost {
				body = []byte(`{"username":"ada","password":"secret1"}`)
			}
			w := serveRouter(r, tc.method, tc.path, tc.token, body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestRoutesAuditAdminMutations(t *testing.T) {
	audit := &auditRecorder{}
	r := buildTestRouter(audit)

	w := serveRouter(r, http.MethodPost, "/api/v1/enrollments/en-7/withdraw", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serveRouter(r, http.MethodGet, "/api/v1/enrollments/en-7", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "WITHDRAW", entry.Action)
	assert.Equal(t, "enrollment", entry.Resource)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "en-7", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-admin", *entry.UserID)
}
