package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateScripting(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateImageGen(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/newsreel/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'newsreel config init')", defaultPath)
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if !c.Discovery.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Discovery.Model) == "" {
		return errors.New("discovery.model must be set when discovery.enabled is true")
	}
	if c.Discovery.MaxStories <= 0 {
		return errors.New("discovery.max_stories must be positive")
	}
	return nil
}

func (c *Config) validateScripting() error {
	if len(c.Scripting.Models) == 0 {
		return errors.New("scripting.models must include at least one model")
	}
	for _, model := range c.Scripting.Models {
		if strings.TrimSpace(model) == "" {
			return errors.New("scripting.models must not contain empty entries")
		}
	}
	return nil
}

func (c *Config) validateSpeech() error {
	// base_url has no usable default; its absence is surfaced by preflight
	// and by the voice stage so queue-only commands keep working.
	if strings.TrimSpace(c.Speech.Voice) == "" {
		return errors.New("speech.voice must be set")
	}
	switch c.Speech.Format {
	case "mp3", "ogg", "wav":
	default:
		return fmt.Errorf("speech.format must be one of mp3, ogg, wav (got %q)", c.Speech.Format)
	}
	if c.Speech.TimeoutSeconds <= 0 {
		return errors.New("speech.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateImageGen() error {
	if strings.TrimSpace(c.ImageGen.BaseURL) == "" {
		return errors.New("imagegen.base_url must be set")
	}
	if strings.TrimSpace(c.ImageGen.Model) == "" {
		return errors.New("imagegen.model must be set")
	}
	if c.ImageGen.TimeoutSeconds <= 0 {
		return errors.New("imagegen.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
