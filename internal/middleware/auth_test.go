package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

func newProtectedRouter(validator TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/timetables", JWT(validator), RequireRoles(roles...), func(c *gin.Context) {
		claims, _ := CurrentUser(c)
		c.String(http.StatusCreated, claims.UserID)
	})
	return router
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := newProtectedRouter(&stubValidator{}, models.RoleTeacher)

	for _, header := range []string{"", "Token abc", "Bearer   "} {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/timetables", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: unexpected status %d", header, recorder.Code)
		}
	}
}

func TestJWTPropagatesValidationError(t *testing.T) {
	router := newProtectedRouter(&stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}, models.RoleTeacher)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/timetables", nil)
	req.Header.Set("Authorization", "Bearer expired")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACAllowsListedRolesAndSuperAdmin(t *testing.T) {
	cases := []struct {
		role models.UserRole
		want int
	}{
		{models.RoleTeacher, http.StatusCreated},
		{models.RoleAdmin, http.StatusCreated},
		{models.RoleSuperAdmin, http.StatusCreated},
		{models.RoleStudent, http.StatusForbidden},
	}
	for _, tc := range cases {
		validator := &stubValidator{claims: &models.JWTClaims{UserID: "user-1", Role: tc.role}}
		router := newProtectedRouter(validator, models.RoleTeacher, models.RoleAdmin)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/timetables", nil)
		req.Header.Set("Authorization", "bearer signed-token")
		router.ServeHTTP(recorder, req)

		if recorder.Code != tc.want {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.want, recorder.Code)
		}
		if validator.seen != "signed-token" {
			t.Fatalf("unexpected token passed to validator: %q", validator.seen)
		}
	}
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", OptionalJWT(&stubValidator{err: appErrors.ErrUnauthorized}), func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			t.Fatalf("expected no user on context")
		}
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

type recordingObserver struct {
	method string
	path   string
	status int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.method, r.path, r.status = method, path, status
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/timetables/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/timetables/abc", nil))
	if observer.path != "/timetables/:id" || observer.status != http.StatusOK {
		t.Fatalf("unexpected observation: %+v", observer)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if observer.path != "unmatched" || observer.status != http.StatusNotFound {
		t.Fatalf("unexpected observation for unknown route: %+v", observer)
	}
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "warnings", 2)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if meta[cacheHitKey] != true || meta["warnings"] != 2 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if _, ok := meta["processing_time_ms"]; !ok {
		t.Fatalf("expected processing time in meta")
	}
}
