package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeDiscovery()
	c.normalizeScripting()
	c.normalizeSpeech()
	c.normalizeImageGen()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	// Asset directories default to subdirectories of data_dir so a single
	// override relocates the whole tree.
	assetDirs := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.audio_dir", &c.Paths.AudioDir, "audio"},
		{"paths.images_dir", &c.Paths.ImagesDir, "images"},
		{"paths.captions_dir", &c.Paths.CaptionsDir, "captions"},
		{"paths.videos_dir", &c.Paths.VideosDir, "videos"},
		{"paths.scratch_dir", &c.Paths.ScratchDir, "scratch"},
	}
	for _, dir := range assetDirs {
		if strings.TrimSpace(*dir.value) == "" {
			*dir.value = filepath.Join(c.Paths.DataDir, dir.fallback)
			continue
		}
		if *dir.value, err = expandPath(*dir.value); err != nil {
			return fmt.Errorf("%s: %w", dir.name, err)
		}
	}

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeDiscovery() {
	c.Discovery.Model = strings.TrimSpace(c.Discovery.Model)
	if c.Discovery.Model == "" {
		c.Discovery.Model = defaultDiscoveryModel
	}
	if c.Discovery.MaxStories <= 0 {
		c.Discovery.MaxStories = defaultDiscoveryMaxStories
	}
	c.Discovery.Focus = strings.TrimSpace(c.Discovery.Focus)
	if c.Discovery.Focus == "" {
		c.Discovery.Focus = defaultDiscoveryFocus
	}
}

func (c *Config) normalizeScripting() {
	models := make([]string, 0, len(c.Scripting.Models))
	seen := make(map[string]struct{}, len(c.Scripting.Models))
	for _, model := range c.Scripting.Models {
		trimmed := strings.TrimSpace(model)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		models = append(models, trimmed)
	}
	if len(models) == 0 {
		models = defaultScriptModels()
	}
	c.Scripting.Models = models
}

func (c *Config) normalizeSpeech() {
	c.Speech.BaseURL = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c.Speech.BaseURL), "/"))
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.APIKey == "" {
		if value, ok := os.LookupEnv("SPEECH_API_KEY"); ok {
			c.Speech.APIKey = strings.TrimSpace(value)
		}
	}
	c.Speech.Voice = strings.TrimSpace(c.Speech.Voice)
	if c.Speech.Voice == "" {
		c.Speech.Voice = defaultSpeechVoice
	}
	c.Speech.Format = strings.ToLower(strings.TrimSpace(c.Speech.Format))
	if c.Speech.Format == "" {
		c.Speech.Format = defaultSpeechFormat
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeoutSeconds
	}
}

func (c *Config) normalizeImageGen() {
	c.ImageGen.BaseURL = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c.ImageGen.BaseURL), "/"))
	if c.ImageGen.BaseURL == "" {
		c.ImageGen.BaseURL = defaultImageGenBaseURL
	}
	c.ImageGen.APIKey = strings.TrimSpace(c.ImageGen.APIKey)
	if c.ImageGen.APIKey == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.ImageGen.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.ImageGen.APIKey = strings.TrimSpace(value)
		}
	}
	c.ImageGen.Model = strings.TrimSpace(c.ImageGen.Model)
	if c.ImageGen.Model == "" {
		c.ImageGen.Model = defaultImageGenModel
	}
	c.ImageGen.StyleSuffix = strings.TrimSpace(c.ImageGen.StyleSuffix)
	c.ImageGen.NegativePrompt = strings.TrimSpace(c.ImageGen.NegativePrompt)
	if c.ImageGen.TimeoutSeconds <= 0 {
		c.ImageGen.TimeoutSeconds = defaultImageGenTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
