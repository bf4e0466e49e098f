package config

import (
	"errors"
	"testing"
)

// validConfig returns a Config that passes Validate().
// Tests mutate single fields to probe individual rules.
func validConfig() Config {
	return Config{
		Provider:         ProviderGemini,
		ModelName:        "gemini-2.5-flash",
		EmbedderModel:    DefaultEmbedderModel,
		TopK:             DefaultTopK,
		RRFConstant:      DefaultRRFConstant,
		HistoryWindow:    DefaultHistoryWindow,
		KBPath:           "kb",
		ChunkSize:        1000,
		ChunkOverlap:     200,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "riffle",
		PostgresPassword: "riffle_dev_password",
		PostgresDBName:   "riffle",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid default-like config",
			mutate: func(c *Config) {},
		},
		{
			name:    "unsupported provider",
			mutate:  func(c *Config) { c.Provider = "openrouter" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "top_k zero",
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top_k over maximum",
			mutate:  func(c *Config) { c.TopK = MaxTopK + 1 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "rrf constant below one",
			mutate:  func(c *Config) { c.RRFConstant = 0.5 },
			wantErr: ErrInvalidRRFConstant,
		},
		{
			name:   "rrf constant exactly one is allowed",
			mutate: func(c *Config) { c.RRFConstant = 1 },
		},
		{
			name:    "history window zero",
			mutate:  func(c *Config) { c.HistoryWindow = 0 },
			wantErr: ErrInvalidHistoryWindow,
		},
		{
			name:    "chunk overlap equals chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "negative chunk overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty postgres db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "bogus ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "maybe" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want errors.Is(%v)", err, tt.wantErr)
			}
		})
	}
}
