package studyrag

import "go.uber.org/zap"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	apiKey  string
	baseURL string

	embeddingModel      string
	dimensions          int
	generationModel     string
	documentInstruction string
	queryInstruction    string

	collection          string
	topK                int
	scoreThreshold      float64
	maxQueryVariants    int
	compressionEnabled  bool
	contextBudgetTokens int

	keyPrefix     string
	cacheCapacity int
	maxRetries    int

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithOpenAI sets credentials for the embedding and generation providers.
// baseURL may be empty for the default OpenAI endpoint.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithEmbeddingModel overrides the embedding model and vector dimensions.
func WithEmbeddingModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
		c.dimensions = dimensions
	})
}

// WithGenerationModel overrides the model used for query expansion and
// contextual compression.
func WithGenerationModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.generationModel = model
	})
}

// WithInstructions sets instruction prefixes prepended before embedding
// documents and queries (for instruction-tuned embedding models).
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.documentInstruction = document
		c.queryInstruction = query
	})
}

// WithCollection sets the default collection searched by Retrieve.
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithTopK bounds the number of documents returned per retrieve call.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithScoreThreshold drops hits below the similarity threshold (0..1).
func WithScoreThreshold(threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoreThreshold = threshold
	})
}

// WithQueryVariants sets how many paraphrases query expansion generates.
func WithQueryVariants(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxQueryVariants = n
	})
}

// WithCompression enables contextual compression under the given token
// budget.
func WithCompression(budgetTokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.compressionEnabled = true
		c.contextBudgetTokens = budgetTokens
	})
}

// WithKeyPrefix namespaces all keys and index names in the shared store.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCacheCapacity bounds the in-process embedding cache.
func WithCacheCapacity(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheCapacity = n
	})
}

// WithMaxRetries bounds retry attempts against the embedding provider and
// the vector index.
func WithMaxRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = n
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = logger
	})
}
