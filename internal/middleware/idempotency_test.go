package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/pdavault/internal/logging"
)

type idempotencyFixture struct {
	app      *fiber.App
	deposits atomic.Int64
	failing  atomic.Bool
}

func setupTestApp(t *testing.T) *idempotencyFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	f := &idempotencyFixture{app: fiber.New()}
	f.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	f.app.Post("/accounts/:owner/deposit", func(c *fiber.Ctx) error {
		if f.failing.Load() {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
		}
		n := f.deposits.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"deposit": n})
	})
	f.app.Post("/accounts/:owner/withdraw", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})
	f.app.Get("/accounts/:owner/balance", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return f
}

func (f *idempotencyFixture) post(t *testing.T, path, key string) (*http.Response, string) {
	t.Helper()
	return f.postBody(t, path, key, "{}")
}

func (f *idempotencyFixture) postBody(t *testing.T, path, key, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, string(respBody)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	f := setupTestApp(t)

	resp, _ := f.post(t, "/accounts/abc/deposit", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	f := setupTestApp(t)

	resp, err := f.app.Test(httptest.NewRequest(fiber.MethodGet, "/accounts/abc/balance", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	f := setupTestApp(t)

	resp, payload := f.post(t, "/accounts/abc/deposit", "abc123")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, resp.StatusCode)
	}

	resp2, cachedPayload := f.post(t, "/accounts/abc/deposit", "abc123")
	if resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, resp2.StatusCode)
	}
	if resp2.Header.Get(idempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header on cached response")
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	if got := f.deposits.Load(); got != 1 {
		t.Fatalf("handler ran %d times, expected once", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedToPath(t *testing.T) {
	f := setupTestApp(t)

	if resp, _ := f.post(t, "/accounts/abc/deposit", "same"); resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("deposit: unexpected status %d", resp.StatusCode)
	}
	resp, _ := f.post(t, "/accounts/abc/withdraw", "same")
	if resp.StatusCode != fiber.StatusOK || resp.Header.Get(idempotencyReplayHeader) != "" {
		t.Fatalf("withdraw with a reused key must run its own handler, got %d", resp.StatusCode)
	}
}

func TestIdempotencyDoesNotCacheServerErrors(t *testing.T) {
	f := setupTestApp(t)

	f.failing.Store(true)
	if resp, _ := f.post(t, "/accounts/abc/deposit", "retry-me"); resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected failure, got %d", resp.StatusCode)
	}

	f.failing.Store(false)
	resp, _ := f.post(t, "/accounts/abc/deposit", "retry-me")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("retry after server error should execute, got %d", resp.StatusCode)
	}
	if got := f.deposits.Load(); got != 1 {
		t.Fatalf("expected one successful deposit, got %d", got)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	f := setupTestApp(t)

	resp, first := f.postBody(t, "/accounts/abc/deposit", "dep-1", `{"amount":100}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, resp.StatusCode)
	}

	resp, _ = f.postBody(t, "/accounts/abc/deposit", "dep-1", `{"amount":900}`)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected %d for a changed body, got %d", fiber.StatusUnprocessableEntity, resp.StatusCode)
	}
	if resp.Header.Get(idempotencyReplayHeader) != "" {
		t.Fatal("a changed body must not be answered with the stored response")
	}

	resp, replayed := f.postBody(t, "/accounts/abc/deposit", "dep-1", `{"amount":100}`)
	if resp.StatusCode != fiber.StatusCreated || replayed != first {
		t.Fatalf("identical body should still replay, got %d %s", resp.StatusCode, replayed)
	}
	if got := f.deposits.Load(); got != 1 {
		t.Fatalf("handler ran %d times, expected once", got)
	}
}
