package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/dormhub/internal/app/features/logout"
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.uber.org/zap"
)

func TestHandleLogout_ExpiresCookie(t *testing.T) {
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123", "dormhub-test", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	h := logout.NewHandler(sm, nil, logger)

	for _, signedIn := range []bool{true, false} {
		req := httptest.NewRequest("POST", "/logout", nil)
		if signedIn {
			req = testutil.WithUser(req, testutil.SuperAdminUser())
		}
		rec := httptest.NewRecorder()
		h.HandleLogout(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("signedIn=%v: status = %d, want 204", signedIn, rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
			t.Errorf("signedIn=%v: expected an expiring cookie, got %+v", signedIn, cookies)
		}
	}
}
