package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

var tokens = tokenStub{
	"admin":    {UserID: "u-1", Username: "root", Role: models.RoleAdmin},
	"student":  {UserID: "u-2", Username: "ada", Role: models.RoleStudent, StudentID: "s-1"},
	"unlinked": {UserID: "u-3", Username: "ghost", Role: models.RoleStudent},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	r := gin.New()
	ok := func(c *gin.Context) { c.String(http.StatusOK, Claims(c).Username) }
	r.GET("/admin", JWT(tokens), RequireRoles(models.RoleAdmin), ok)
	r.GET("/portal", JWT(tokens), RequireStudent(), ok)

	cases := []struct {
		path, token string
		status      int
	}{
		{"/admin", "", http.StatusUnauthorized},
		{"/admin", "bogus", http.StatusUnauthorized},
		{"/admin", "admin", http.StatusOK},
		{"/admin", "student", http.StatusForbidden},
		{"/portal", "student", http.StatusOK},
		{"/portal", "admin", http.StatusForbidden},
		{"/portal", "unlinked", http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := serve(r, http.MethodGet, tc.path, tc.token)
		assert.Equal(t, tc.status, rec.Code, "%s as %q", tc.path, tc.token)
	}
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := gin.New()
	r.GET("/x", JWT(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Token admin")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization header")
}

type auditStub struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *log)
	return a.err
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	writer := &auditStub{}
	r := gin.New()
	r.DELETE("/courses/:id", JWT(tokens), Audit(writer, nil, models.AuditActionDelete, "course"), func(c *gin.Context) {
		if c.Param("id") == "busy" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusNoContent)
	})

	serve(r, http.MethodDelete, "/courses/c-1", "admin")
	serve(r, http.MethodDelete, "/courses/busy", "admin")

	require.Len(t, writer.entries, 1)
	entry := writer.entries[0]
	assert.Equal(t, "DELETE", entry.Action)
	assert.Equal(t, "course", entry.Resource)
	assert.Equal(t, "c-1", *entry.ResourceID)
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Contains(t, string(entry.NewValues), `"status":204`)
}

func TestAuditWriteFailureDoesNotChangeResponse(t *testing.T) {
	writer := &auditStub{err: errors.New("db down")}
	r := gin.New()
	r.POST("/courses", Audit(writer, nil, models.AuditActionCreate, "course"), func(c *gin.Context) { c.Status(http.StatusCreated) })

	rec := serve(r, http.MethodPost, "/courses", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, writer.entries, 1)
	assert.Nil(t, writer.entries[0].UserID)
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/students/abc", "")
	serve(r, http.MethodGet, "/nope", "")

	assert.Equal(t, []string{"/students/:id", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, observer.statuses)
}
