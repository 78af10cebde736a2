package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI  ProviderType = "openai"
	ProviderMistral ProviderType = "mistral"
	ProviderOllama  ProviderType = "ollama"
)

// Config is the top-level docdex configuration, corresponding to .docdex.yml.
type Config struct {
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	Model          string       `yaml:"model" koanf:"model"`
	EmbedProvider  ProviderType `yaml:"embed_provider" koanf:"embed_provider"`
	EmbedModel     string       `yaml:"embed_model" koanf:"embed_model"`
	BaseURL        string       `yaml:"base_url" koanf:"base_url"`
	DataDir        string       `yaml:"data_dir" koanf:"data_dir"`
	Port           int          `yaml:"port" koanf:"port"`
	Chunk          ChunkConfig  `yaml:"chunk" koanf:"chunk"`
	Index          IndexConfig  `yaml:"index" koanf:"index"`
	Worker         WorkerConfig `yaml:"worker" koanf:"worker"`
	Search         SearchConfig `yaml:"search" koanf:"search"`
	RequestsPerMin int          `yaml:"requests_per_min" koanf:"requests_per_min"`
}

// ChunkConfig controls how extracted page text is windowed.
type ChunkConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// IndexConfig controls the approximate-index lifecycle thresholds.
type IndexConfig struct {
	MinTrainSize      int `yaml:"min_train_size" koanf:"min_train_size"`
	TrainSampleCap    int `yaml:"train_sample_cap" koanf:"train_sample_cap"`
	BackfillBatchSize int `yaml:"backfill_batch_size" koanf:"backfill_batch_size"`
	NProbe            int `yaml:"nprobe" koanf:"nprobe"`
}

// WorkerConfig controls the indexing worker loop.
type WorkerConfig struct {
	PollIntervalSecs int `yaml:"poll_interval_secs" koanf:"poll_interval_secs"`
	LeaseSecs        int `yaml:"lease_secs" koanf:"lease_secs"`
	Count            int `yaml:"count" koanf:"count"`
}

// SearchConfig holds retrieval defaults that callers may override per request.
type SearchConfig struct {
	TopK   int  `yaml:"top_k" koanf:"top_k"`
	RRFK   int  `yaml:"rrf_k" koanf:"rrf_k"`
	Rerank bool `yaml:"rerank" koanf:"rerank"`
}
