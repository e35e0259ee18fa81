package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/infra/memory"
)

func TestRequireAdminPutsUsernameInContext(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sessions := memory.NewSessionStore()
	answers := memory.NewAnswerKeyRepository(store, time.Minute)
	quiz := app.NewQuizService(store, store, answers, store, sessions, app.NewLeaderboardBroadcaster())
	admin := app.NewAdminService(store, store, store, answers, store, quiz, []byte("test-secret"), time.Hour)
	h := NewHandler(quiz, admin)

	if err := admin.CreateCredential(ctx, "root", "s3cret"); err != nil {
		t.Fatalf("create credential: %v", err)
	}
	token, err := admin.Authorize(ctx, "root", "s3cret")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	var username string
	var present bool
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		username, present = AdminFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/topics/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.RequireAdmin(next).ServeHTTP(rec, req)

	if rec.Code == http.StatusForbidden {
		t.Fatalf("valid token rejected")
	}
	if !present || username != "root" {
		t.Fatalf("expected admin username in context, got %q (present=%v)", username, present)
	}
}

func TestAdminFromContextWithoutMiddleware(t *testing.T) {
	if _, ok := AdminFromContext(context.Background()); ok {
		t.Fatal("expected no admin on a bare context")
	}
}
