package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"capsum/internal/keypool"
	"capsum/internal/logging"
	"capsum/internal/ratelimit"
	"capsum/internal/retry"
)

func testConfig() Config {
	return Config{
		Model:         "gemini-2.5-flash",
		Prompt:        "Describe this image.",
		MaxRetries:    3,
		RetryBase:     time.Second,
		RetryMax:      time.Minute,
		RotationDelay: time.Second,
	}
}

func testClassifier() *retry.Classifier {
	return retry.NewClassifier(
		[]string{"429", "rate limit"},
		[]string{"500", "503", "UNAVAILABLE"},
	)
}

func testImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func captionResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

type recordedSleep struct {
	durations []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.durations = append(r.durations, d)
	return nil
}

func newTestClient(t *testing.T, keys []string, cfg Config, call caller, sleeps *recordedSleep) (*Client, *keypool.Pool) {
	t.Helper()
	pool, err := keypool.New(keys)
	if err != nil {
		t.Fatalf("keypool: %v", err)
	}
	limiter, err := ratelimit.New(1000, time.Minute)
	if err != nil {
		t.Fatalf("ratelimit: %v", err)
	}
	client, err := New(context.Background(), cfg, pool, limiter, testClassifier(), logging.NewNop(),
		WithCaller(call), WithSleeper(sleeps.sleep))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client, pool
}

func TestProcessSuccess(t *testing.T) {
	var calls int
	client, pool := newTestClient(t, []string{"key-one"}, testConfig(),
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			calls++
			if prompt != "Describe this image." {
				t.Fatalf("unexpected prompt %q", prompt)
			}
			if string(imageData) != "jpeg bytes" {
				t.Fatalf("unexpected image payload %q", imageData)
			}
			if mimeType != "image/jpeg" {
				t.Fatalf("unexpected mime type %q", mimeType)
			}
			return captionResponse("a red car"), nil
		}, &recordedSleep{})

	result := client.Process(context.Background(), testImage(t))
	if !result.OK() {
		t.Fatalf("expected success, got failure %q", result.Text)
	}
	if result.Text != "a red car" {
		t.Fatalf("unexpected caption %q", result.Text)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	stats, _ := pool.Snapshot()
	if stats[0].Requests != 1 || stats[0].Errors != 0 {
		t.Fatalf("unexpected key stats: %+v", stats[0])
	}
}

func TestProcessRotatesOnRateLimit(t *testing.T) {
	sleeps := &recordedSleep{}
	cfg := testConfig()
	cfg.MaxRetries = 0

	client, pool := newTestClient(t, []string{"key-one", "key-two"}, cfg,
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			if keyIndex == 0 {
				return nil, errors.New("429 resource exhausted")
			}
			return captionResponse("a dog"), nil
		}, sleeps)

	result := client.Process(context.Background(), testImage(t))
	if !result.OK() {
		t.Fatalf("rotation should succeed even with zero retry budget, got %q", result.Text)
	}
	if result.KeyIndex != 1 {
		t.Fatalf("expected caption from key 1, got %d", result.KeyIndex)
	}
	if len(sleeps.durations) != 1 || sleeps.durations[0] != time.Second {
		t.Fatalf("expected one rotation delay sleep, got %v", sleeps.durations)
	}

	stats, current := pool.Snapshot()
	if current != 1 {
		t.Fatalf("pool should remain on rotated key, got %d", current)
	}
	if stats[0].RateLimits != 1 {
		t.Fatalf("rate limit not recorded on key 0: %+v", stats[0])
	}
}

func TestProcessAllKeysRateLimited(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, []string{"key-one", "key-two", "key-three"}, testConfig(),
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			calls++
			return nil, errors.New("429 rate limit exceeded")
		}, &recordedSleep{})

	result := client.Process(context.Background(), testImage(t))
	if result.OK() {
		t.Fatal("expected failure when every key is rate limited")
	}
	if calls != 3 {
		t.Fatalf("expected one attempt per key, got %d", calls)
	}
	if !strings.Contains(result.Failure.Error, "All API keys rate limited") {
		t.Fatalf("unexpected failure message %q", result.Failure.Error)
	}
}

func TestProcessRetriesServerErrors(t *testing.T) {
	sleeps := &recordedSleep{}
	var calls int
	client, _ := newTestClient(t, []string{"key-one"}, testConfig(),
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			calls++
			if calls <= 2 {
				return nil, errors.New("503 UNAVAILABLE")
			}
			return captionResponse("a cat"), nil
		}, sleeps)

	result := client.Process(context.Background(), testImage(t))
	if !result.OK() {
		t.Fatalf("expected success after retries, got %q", result.Text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(sleeps.durations) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %v", sleeps.durations)
	}
}

func TestProcessExhaustsRetryBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2

	var calls int
	client, _ := newTestClient(t, []string{"key-one"}, cfg,
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			calls++
			return nil, errors.New("500 internal error")
		}, &recordedSleep{})

	result := client.Process(context.Background(), testImage(t))
	if result.OK() {
		t.Fatal("expected failure after retry budget exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected initial call plus 2 retries, got %d", calls)
	}
	if !strings.Contains(result.Failure.Error, "Max retries (2) reached") {
		t.Fatalf("unexpected failure message %q", result.Failure.Error)
	}
}

func TestProcessTerminalErrorNotRetried(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, []string{"key-one"}, testConfig(),
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			calls++
			return nil, errors.New("invalid argument: bad image")
		}, &recordedSleep{})

	result := client.Process(context.Background(), testImage(t))
	if result.OK() {
		t.Fatal("expected terminal failure")
	}
	if calls != 1 {
		t.Fatalf("terminal errors must not retry, got %d calls", calls)
	}

	var marker FailureMarker
	if err := json.Unmarshal([]byte(result.Text), &marker); err != nil {
		t.Fatalf("failure payload is not JSON: %v", err)
	}
	if !strings.Contains(marker.Error, "bad image") {
		t.Fatalf("unexpected marker %q", marker.Error)
	}
}

func TestProcessMalformedResponsesNeverRetried(t *testing.T) {
	cases := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{
			name: "no candidates",
			resp: &genai.GenerateContentResponse{},
			want: "No candidates",
		},
		{
			name: "safety block",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			want: "safety filters",
		},
		{
			name: "token limit",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonMaxTokens}},
			},
			want: "token limit",
		},
		{
			name: "no parts",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content:      &genai.Content{},
					FinishReason: genai.FinishReasonStop,
				}},
			},
			want: "No content parts",
		},
		{
			name: "unexpected finish reason",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonRecitation}},
			},
			want: "Unexpected finish reason",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			client, pool := newTestClient(t, []string{"key-one"}, testConfig(),
				func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
					calls++
					return tc.resp, nil
				}, &recordedSleep{})

			result := client.Process(context.Background(), testImage(t))
			if result.OK() {
				t.Fatal("expected failure for malformed response")
			}
			if calls != 1 {
				t.Fatalf("malformed responses must not retry, got %d calls", calls)
			}
			if !strings.Contains(result.Failure.Error, tc.want) {
				t.Fatalf("failure %q missing %q", result.Failure.Error, tc.want)
			}

			stats, _ := pool.Snapshot()
			if stats[0].Errors != 1 {
				t.Fatalf("malformed response should count as key error: %+v", stats[0])
			}
		})
	}
}

func TestProcessUnreadableImage(t *testing.T) {
	client, _ := newTestClient(t, []string{"key-one"}, testConfig(),
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			t.Fatal("transport must not be called for unreadable image")
			return nil, nil
		}, &recordedSleep{})

	result := client.Process(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if result.OK() {
		t.Fatal("expected failure for unreadable image")
	}
	if !strings.Contains(result.Failure.Error, "Error reading") {
		t.Fatalf("unexpected failure message %q", result.Failure.Error)
	}
}

func TestProcessCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, []string{"key-one"}, testConfig(),
		func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
			cancel()
			return nil, errors.New("503 UNAVAILABLE")
		}, &recordedSleep{})

	result := client.Process(ctx, testImage(t))
	if result.OK() {
		t.Fatal("expected failure after cancellation")
	}
	if !strings.Contains(result.Failure.Error, "interrupted") {
		t.Fatalf("unexpected failure message %q", result.Failure.Error)
	}
}

func TestMIMEType(t *testing.T) {
	cases := map[string]string{
		"frame.png":     "image/png",
		"frame.JPG":     "image/jpeg",
		"frame.jpeg":    "image/jpeg",
		"frame.gif":     "image/gif",
		"frame.bmp":     "image/bmp",
		"frame.unknown": "image/jpeg",
	}
	for path, want := range cases {
		if got := MIMEType(path); got != want {
			t.Errorf("MIMEType(%q) = %q, want %q", path, got, want)
		}
	}
}
