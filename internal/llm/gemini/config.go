package gemini

import "time"

// Config for the Vertex AI Gemini client.
type Config struct {
	ProjectID       string
	Region          string        // default us-central1
	Model           string        // e.g., "gemini-2.5-flash"
	Temperature     float32       // 0..2
	Timeout         time.Duration // per-call deadline
	CredentialsFile string        // optional; ADC is used when empty
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-central1"
	}
	if c.Model == "" {
		c.Model = "gemini-2.5-flash"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}
