// Package embedder generates vector embeddings for memory chunks using
// various providers.
//
// The embedder supports multiple providers (Jina AI, OpenAI, a local
// deterministic fallback, and a noop provider for keyword-only deployments)
// and layers batching, caching, retries, and a failure cooldown on top of
// the raw provider calls.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	// Generate single embedding
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "postgres connection pooling defaults to 10",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// For efficiency, use batch processing:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{chunk1.Text, chunk2.Text, chunk3.Text},
//	})
//
// Batching reduces API calls significantly compared to sequential single
// requests.
//
// # Provider Selection
//
// NewFromEnv selects a provider based on environment variables:
//
//  1. If MEMCONTEXT_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if JINA_API_KEY is set → use Jina AI
//  3. Else if OPENAI_API_KEY is set → use OpenAI
//  4. Else → fallback to local provider (offline mode)
//
// The local provider hashes input text into a fixed-dimension vector; it is
// deterministic and offline but carries no semantic signal. The noop
// provider always fails, which the engine treats as a request to run in
// keyword-only mode.
//
// # Caching
//
// Wrap any provider with NewCached to add content-addressed caching:
//
//	cache := embedder.NewMemoryCache(10000)
//	emb = embedder.NewCached(emb, cache)
//
// Cache keys are computed by ComputeHash over the model identifier and the
// exact text, so switching models never serves stale vectors. Multiple
// tiers may be stacked (in-process LRU in front of a persistent store);
// hits in a later tier back-fill earlier ones.
//
// # Cooldown
//
// Wrap a provider with NewGated to stop hammering an unavailable backend:
//
//	emb = embedder.NewGated(emb,
//	    embedder.WithFailureThreshold(3),
//	    embedder.WithCooldownPeriod(30*time.Second),
//	)
//
// After the threshold of consecutive failures the gate fails fast with
// ErrCoolingDown until the period elapses, then lets a single probe through.
//
// # Error Handling
//
// Provider failures are wrapped in ErrProviderFailed after retries with
// exponential backoff. Validation problems surface as ErrEmptyText,
// ErrInvalidInput, or ErrBatchTooLarge before any network call is made.
package embedder
