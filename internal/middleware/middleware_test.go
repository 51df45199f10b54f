package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type auditSink chan *models.AuditLog

func (s auditSink) Create(ctx context.Context, entry *models.AuditLog) error {
	s <- entry
	return nil
}

func TestPreferredLanguage(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	assert.Equal(t, "fr", preferredLanguage("fr-FR,fr;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", preferredLanguage("de-DE,en;q=0.5"))
	assert.Equal(t, "fr", preferredLanguage("fr_CA"))
	assert.Equal(t, i18n.DefaultLanguage(), preferredLanguage(""))
	assert.Equal(t, i18n.DefaultLanguage(), preferredLanguage("ja"))
}

func TestRateLimiterRejectsBurstOverflow(t *testing.T) {
	r := gin.New()
	r.Use(APIRateLimiter(1, 2).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := ScrapeRateLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.getVisitor("10.0.0.1").Allow())
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	rl := APIRateLimiter(5, 5)
	rl.getVisitor("10.0.0.1")
	rl.getVisitor("10.0.0.2")

	rl.sweep(time.Now().Add(time.Minute))
	assert.Len(t, rl.visitors, 2)

	rl.sweep(time.Now().Add(10 * time.Minute))
	assert.Empty(t, rl.visitors)
}

func TestAuditLogRecordsMutations(t *testing.T) {
	sink := make(auditSink, 4)
	r := gin.New()
	r.Use(AuditLogMiddleware(sink))
	r.PUT("/v1/drafts/:id/approve", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/drafts/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	id := uuid.New()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/drafts/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/drafts/"+id.String()+"/approve", strings.NewReader(`{"reviewed_by":"amel"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case entry := <-sink:
		assert.Equal(t, "PUT /v1/drafts/:id/approve", entry.Action)
		assert.Equal(t, "drafts", entry.ResourceType)
		require.NotNil(t, entry.ResourceID)
		assert.Equal(t, id, *entry.ResourceID)
		assert.Equal(t, http.StatusOK, entry.StatusCode)
		assert.Equal(t, "amel", entry.NewValues["reviewed_by"])
	case <-time.After(time.Second):
		t.Fatal("no audit entry written")
	}

	// Reads are never audited.
	select {
	case entry := <-sink:
		t.Fatalf("unexpected audit entry %q", entry.Action)
	case <-time.After(50 * time.Millisecond):
	}
}
