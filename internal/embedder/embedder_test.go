package embedder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("model-a", "hello world")
	h2 := ComputeHash("model-a", "hello world")
	assert.Equal(t, h1, h2, "same model and text must hash identically")

	h3 := ComputeHash("model-b", "hello world")
	assert.NotEqual(t, h1, h3, "different model must change the hash")

	h4 := ComputeHash("model-a", "hello worlds")
	assert.NotEqual(t, h1, h4, "different text must change the hash")

	// The separator prevents ambiguity between model and text boundaries.
	assert.NotEqual(t, ComputeHash("ab", "c"), ComputeHash("a", "bc"))

	assert.Len(t, h1, 64, "hex-encoded sha256")
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"valid", "some text", nil},
		{"empty", "", ErrEmptyText},
		{"whitespace only", "   \n\t  ", ErrEmptyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(EmbeddingRequest{Text: tt.text})
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBatchRequest(t *testing.T) {
	err := ValidateBatchRequest(BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"ok", ""}})
	assert.ErrorIs(t, err, ErrEmptyText)

	err = ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	assert.NoError(t, err)
}

func TestLocalProviderDeterministic(t *testing.T) {
	provider, err := NewLocalProvider()
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()

	emb1, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "the quick brown fox"})
	require.NoError(t, err)
	emb2, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "the quick brown fox"})
	require.NoError(t, err)

	assert.Equal(t, emb1.Vector, emb2.Vector, "same input must produce same vector")
	assert.Equal(t, LocalDimension, emb1.Dimension)
	assert.Equal(t, ProviderLocal, emb1.Provider)

	emb3, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "something else"})
	require.NoError(t, err)
	assert.NotEqual(t, emb1.Vector, emb3.Vector, "different input must produce a different vector")
}

func TestLocalProviderBatch(t *testing.T) {
	provider, err := NewLocalProvider()
	require.NoError(t, err)
	defer provider.Close()

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"alpha", "beta", "gamma"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)

	for _, emb := range resp.Embeddings {
		assert.Equal(t, LocalDimension, len(emb.Vector))
	}
}

func TestNoopProviderAlwaysFails(t *testing.T) {
	provider := NewNoopProvider()

	_, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "anything"})
	assert.ErrorIs(t, err, ErrProviderFailed)

	_, err = provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"anything"}})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 0.0001)
	assert.InDelta(t, 0.8, v[1], 0.0001)

	zero := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero, "zero vector passes through unchanged")
}

// flakyEmbedder fails a configurable number of times, then succeeds.
type flakyEmbedder struct {
	failuresLeft int
	calls        int
}

func (f *flakyEmbedder) GenerateEmbedding(_ context.Context, req EmbeddingRequest) (*Embedding, error) {
	f.calls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, errors.New("provider down")
	}
	return &Embedding{Vector: []float32{1}, Dimension: 1, Provider: "flaky", Model: "flaky-1"}, nil
}

func (f *flakyEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	f.calls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, errors.New("provider down")
	}
	embeddings := make([]*Embedding, len(req.Texts))
	for i := range req.Texts {
		embeddings[i] = &Embedding{Vector: []float32{1}, Dimension: 1, Provider: "flaky", Model: "flaky-1"}
	}
	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: "flaky", Model: "flaky-1"}, nil
}

func (f *flakyEmbedder) Dimension() int   { return 1 }
func (f *flakyEmbedder) Provider() string { return "flaky" }
func (f *flakyEmbedder) Model() string    { return "flaky-1" }
func (f *flakyEmbedder) Close() error     { return nil }

func TestGatedTripsAfterThreshold(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	inner := &flakyEmbedder{failuresLeft: 100}
	gated := NewGated(inner,
		WithFailureThreshold(3),
		WithCooldownPeriod(30*time.Second),
		withClock(clock),
	)

	ctx := context.Background()
	req := EmbeddingRequest{Text: "hello"}

	// First three calls reach the provider and fail.
	for i := 0; i < 3; i++ {
		_, err := gated.GenerateEmbedding(ctx, req)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCoolingDown)
	}
	assert.Equal(t, 3, inner.calls)
	assert.True(t, gated.CoolingDown())

	// Gate is open: calls fail fast without touching the provider.
	_, err := gated.GenerateEmbedding(ctx, req)
	assert.ErrorIs(t, err, ErrCoolingDown)
	assert.Equal(t, 3, inner.calls)
}

func TestGatedProbesAfterCooldown(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	inner := &flakyEmbedder{failuresLeft: 3}
	gated := NewGated(inner,
		WithFailureThreshold(3),
		WithCooldownPeriod(30*time.Second),
		withClock(clock),
	)

	ctx := context.Background()
	req := EmbeddingRequest{Text: "hello"}

	for i := 0; i < 3; i++ {
		_, _ = gated.GenerateEmbedding(ctx, req)
	}
	assert.True(t, gated.CoolingDown())

	// Advance past the window: the next call is allowed through and,
	// since the provider has recovered, resets the gate.
	now = now.Add(31 * time.Second)
	emb, err := gated.GenerateEmbedding(ctx, req)
	require.NoError(t, err)
	assert.NotNil(t, emb)
	assert.False(t, gated.CoolingDown())
}

func TestGatedValidationDoesNotTrip(t *testing.T) {
	inner := &flakyEmbedder{}
	gated := NewGated(inner, WithFailureThreshold(1))

	for i := 0; i < 5; i++ {
		_, err := gated.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)
	}
	assert.Equal(t, 0, inner.calls, "validation failures must not reach the provider")
	assert.False(t, gated.CoolingDown())
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	attempts := 0
	config := RetryConfig{
		MaxRetries:        3,
		InitialBackoffMs:  1,
		MaxBackoffMs:      5,
		BackoffMultiplier: 2.0,
	}

	result, err := retryWithBackoff(context.Background(), config, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	config := RetryConfig{
		MaxRetries:        2,
		InitialBackoffMs:  1,
		MaxBackoffMs:      2,
		BackoffMultiplier: 2.0,
	}

	_, err := retryWithBackoff(context.Background(), config, func() (int, error) {
		return 0, errors.New("permanent")
	})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "max retries exceeded"))
}

func TestRetryWithBackoffContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := DefaultRetryConfig()
	attempts := 0
	_, err := retryWithBackoff(ctx, config, func() (int, error) {
		attempts++
		return 0, errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancelled context stops further attempts")
}
