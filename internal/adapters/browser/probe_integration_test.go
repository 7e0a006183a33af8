//go:build integration

package browser_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"misskey-comments/internal/adapters/browser"
	"misskey-comments/internal/adapters/cache"
	"misskey-comments/internal/adapters/misskey"
	"misskey-comments/internal/adapters/sanitize"
	"misskey-comments/internal/adapters/web"
	"misskey-comments/internal/usecases"
	"misskey-comments/templates/components"
	"misskey-comments/test/fixtures"
)

// startWidgetServer serves the widget on a free local port and returns the
// port. Instances are reached with plain HTTP.
func startWidgetServer(t *testing.T) int {
	t.Helper()
	client := misskey.NewClient(misskey.Options{Scheme: "http", Timeout: 5 * time.Second})
	mem := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	handlers := web.NewHandlers(
		usecases.NewGetStatsUseCase(mem, client),
		usecases.NewGetThreadUseCase(mem, client, 100),
		components.NewRenderer(components.Options{Sanitizer: sanitize.New()}),
		web.Options{},
	)
	limiter := web.NewRateLimiter(100, 100)
	t.Cleanup(limiter.Close)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	web.SetupRoutes(app, handlers, limiter, t.TempDir(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return ln.Addr().(*net.TCPAddr).Port
}

// setupChrome starts a headless Chrome container that can reach port on the
// host, if any, and returns its DevTools websocket URL.
func setupChrome(ctx context.Context, t *testing.T, port int) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "chromedp/headless-shell:latest",
		ExposedPorts: []string{"9222/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("DevTools listening").WithStartupTimeout(60*time.Second),
			wait.ForHTTP("/json/version").WithPort("9222/tcp").WithStartupTimeout(60*time.Second),
		),
	}
	if port > 0 {
		req.HostAccessPorts = []int{port}
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start chrome container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, "9222")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s:%s/json/version", host, mapped.Port()))
	if err != nil {
		t.Fatalf("devtools version: %v", err)
	}
	defer resp.Body.Close()
	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		t.Fatalf("decode devtools version: %v", err)
	}

	// ws://127.0.0.1:9222/devtools/browser/<id> inside the container
	path := version.WebSocketDebuggerURL[strings.Index(version.WebSocketDebuggerURL, "/devtools"):]
	return fmt.Sprintf("ws://%s:%s%s", host, mapped.Port(), path)
}

func TestIntegration_Probe_WidgetLoadsWhenScrolledIntoView(t *testing.T) {
	ctx := context.Background()
	inst := fixtures.NewInstance()
	defer inst.Close()
	port := startWidgetServer(t)

	pool, err := browser.NewPool(browser.Options{RemoteURL: setupChrome(ctx, t, port)})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Close()

	pageURL := fmt.Sprintf("http://%s:%d/embed/%s/%s", testcontainers.HostInternal, port, inst.Host(), fixtures.RootNoteID)
	result, err := browser.NewProber(pool, 30*time.Second).Probe(ctx, pageURL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if result.Outcome != browser.OutcomeComments {
		t.Errorf("outcome: got %s, want %s", result.Outcome, browser.OutcomeComments)
	}
	if result.Comments != len(fixtures.ThreadIDs()) {
		t.Errorf("comments: got %d, want %d", result.Comments, len(fixtures.ThreadIDs()))
	}
	if !result.Stats {
		t.Error("stats region should be filled")
	}
	if inst.RepliesCalls.Load() != 1 {
		t.Errorf("replies calls: got %d, want 1", inst.RepliesCalls.Load())
	}
}

func TestIntegration_Probe_ReportsErrorNotice(t *testing.T) {
	ctx := context.Background()
	inst := fixtures.NewInstance()
	defer inst.Close()
	inst.RepliesHandler = fixtures.Respond(http.StatusInternalServerError, "boom")
	port := startWidgetServer(t)

	pool, err := browser.NewPool(browser.Options{RemoteURL: setupChrome(ctx, t, port)})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Close()

	pageURL := fmt.Sprintf("http://%s:%d/embed/%s/%s", testcontainers.HostInternal, port, inst.Host(), fixtures.RootNoteID)
	result, err := browser.NewProber(pool, 30*time.Second).Probe(ctx, pageURL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if result.Outcome != browser.OutcomeError {
		t.Errorf("outcome: got %s, want %s", result.Outcome, browser.OutcomeError)
	}
	if result.Loaded() {
		t.Error("a failed list must stay unloaded")
	}
}

func TestIntegration_Pool_ContextCanceledWhileWaitingForTab(t *testing.T) {
	ctx := context.Background()
	pool, err := browser.NewPool(browser.Options{RemoteURL: setupChrome(ctx, t, 0)})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Close()

	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.WithTab(ctx, func(context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started
	defer close(hold)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = pool.WithTab(waitCtx, func(context.Context) error { return nil })

	if err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}
