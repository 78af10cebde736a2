package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:      ProviderOpenAI,
		Model:         "gpt-4o-mini",
		EmbedProvider: ProviderOpenAI,
		EmbedModel:    "text-embedding-3-small",
		DataDir:       "data",
		Port:          8080,
		Chunk: ChunkConfig{
			Size:    400,
			Overlap: 200,
		},
		Index: IndexConfig{
			MinTrainSize:      5000,
			TrainSampleCap:    100000,
			BackfillBatchSize: 50000,
			NProbe:            16,
		},
		Worker: WorkerConfig{
			PollIntervalSecs: 1,
			LeaseSecs:        300,
			Count:            1,
		},
		Search: SearchConfig{
			TopK:   8,
			RRFK:   60,
			Rerank: false,
		},
		RequestsPerMin: 60,
	}
}
