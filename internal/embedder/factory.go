package embedder

import (
	"fmt"
	"os"
	"strings"
)

// NewFromEnv selects a provider based on MEMCONTEXT_EMBEDDING_PROVIDER.
// When the variable is unset, it prefers whichever API key is present,
// checking Jina first, then OpenAI, and finally falls back to the local
// deterministic provider so the engine always has vectors available.
func NewFromEnv() (Embedder, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv(EnvProvider)))

	switch name {
	case ProviderJina:
		return NewJinaProvider("")
	case ProviderOpenAI:
		return NewOpenAIProvider("")
	case ProviderLocal:
		return NewLocalProvider()
	case ProviderNoop:
		return NewNoopProvider(), nil
	case "":
		// Auto-detect from available credentials.
		if os.Getenv(EnvJinaAPIKey) != "" {
			return NewJinaProvider("")
		}
		if os.Getenv(EnvOpenAIAPIKey) != "" {
			return NewOpenAIProvider("")
		}
		return NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, name)
	}
}
