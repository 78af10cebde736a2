package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .docdex.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docdex! Let's configure your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "mistral", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Chat model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: defaultModelFor(cfg.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = model

	// 3. Embedding provider follows the chat provider unless overridden.
	cfg.EmbedProvider = cfg.Provider
	embedPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: defaultEmbedModelFor(cfg.EmbedProvider),
	}
	embedModel, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	cfg.EmbedModel = embedModel

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database, uploads, index files)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("port must be a number in (0, 65535]")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 6. LLM reranking.
	rerankPrompt := promptui.Select{
		Label: "Rerank search results with the LLM",
		Items: []string{"no", "yes"},
	}
	rerankIdx, _, err := rerankPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("rerank selection: %w", err)
	}
	cfg.Search.Rerank = rerankIdx == 1

	// Check for API key.
	envVar := APIKeyEnvVar(cfg.Provider)
	if envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before starting docdex.\n", envVar)
	}

	configPath := ".docdex.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

func defaultModelFor(p ProviderType) string {
	switch p {
	case ProviderMistral:
		return "mistral-small-latest"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}

func defaultEmbedModelFor(p ProviderType) string {
	switch p {
	case ProviderMistral:
		return "mistral-embed"
	case ProviderOllama:
		return "nomic-embed-text"
	default:
		return "text-embedding-3-small"
	}
}
