package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	Vision   LLMConfig      `yaml:"vision_llm"`
	RAG      RAGConfig      `yaml:"rag"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

// LLMConfig selects one provider-backed capability. Provider is "openai"
// (any OpenAI-compatible endpoint, e.g. OpenRouter) or "ollama".
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	DBPath     string `yaml:"db_path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

// LoadConfig reads a YAML config file, expanding ${VAR} references from the
// environment so secrets can stay out of the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.RAG.DBPath == "" {
		cfg.RAG.DBPath = "./chroma_db"
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = "lumina_notebook"
	}
	if cfg.EmbedLLM.Model == "" {
		return nil, fmt.Errorf("embed_llm.model is required")
	}
	return &cfg, nil
}
