package config

import "fmt"

// Validate checks all configuration values and returns the first violation.
// Called by Load() immediately after unmarshal (fail-fast).
func (c *Config) Validate() error {
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	return c.validateStorage()
}

func (c *Config) validateAI() error {
	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
	default:
		return fmt.Errorf("%w: %q (supported: gemini, googleai)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: %d (must be in [1, %d])", ErrInvalidTopK, c.TopK, MaxTopK)
	}
	if c.RRFConstant < 1 {
		return fmt.Errorf("%w: %g (must be >= 1)", ErrInvalidRRFConstant, c.RRFConstant)
	}
	if c.HistoryWindow < 1 || c.HistoryWindow > MaxHistoryWindow {
		return fmt.Errorf("%w: %d (must be in [1, %d])", ErrInvalidHistoryWindow, c.HistoryWindow, MaxHistoryWindow)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be in [1, 65535])", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
