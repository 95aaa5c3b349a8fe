package config

const (
	defaultDataDir          = "~/.local/share/newsreel"
	defaultLogDir           = "~/.local/share/newsreel/logs"
	defaultAPIBind          = "127.0.0.1:7787"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMReferer        = "https://github.com/newsreel/newsreel"
	defaultLLMTitle          = "Newsreel"
	defaultLLMTimeoutSeconds = 60

	defaultDiscoveryModel      = "google/gemini-2.5-flash"
	defaultDiscoveryMaxStories = 5
	defaultDiscoveryFocus      = "positive nationwide news, prioritizing diplomacy, trade, and foreign relations"

	defaultSpeechVoice          = "Matthew"
	defaultSpeechFormat         = "mp3"
	defaultSpeechTimeoutSeconds = 120

	defaultImageGenBaseURL        = "https://router.huggingface.co/hf-inference/models"
	defaultImageGenModel          = "stabilityai/stable-diffusion-xl-base-1.0"
	defaultImageGenStyleSuffix    = "digital art, editorial illustration, stylized drawing, masterpiece"
	defaultImageGenNegativePrompt = "photorealistic, maps, flags, text, blurry"
	defaultImageGenTimeoutSeconds = 180

	defaultWorkflowQueuePollInterval  = 5
	defaultWorkflowErrorRetryInterval = 10
	defaultWorkflowHeartbeatInterval  = 15
	defaultWorkflowHeartbeatTimeout   = 120

	defaultNotifyRequestTimeout = 10
)

// defaultScriptModels is the scripting waterfall tried in order. Transient
// upstream failures (quota, overload) fall through to the next entry.
func defaultScriptModels() []string {
	return []string{
		"google/gemini-2.5-flash",
		"google/gemini-3-flash-preview",
		"google/gemini-2.5-flash-lite",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Discovery: Discovery{
			Enabled:    true,
			Model:      defaultDiscoveryModel,
			MaxStories: defaultDiscoveryMaxStories,
			Focus:      defaultDiscoveryFocus,
		},
		Scripting: Scripting{
			Models: defaultScriptModels(),
		},
		Speech: Speech{
			Voice:          defaultSpeechVoice,
			Format:         defaultSpeechFormat,
			TimeoutSeconds: defaultSpeechTimeoutSeconds,
		},
		ImageGen: ImageGen{
			BaseURL:        defaultImageGenBaseURL,
			Model:          defaultImageGenModel,
			StyleSuffix:    defaultImageGenStyleSuffix,
			NegativePrompt: defaultImageGenNegativePrompt,
			TimeoutSeconds: defaultImageGenTimeoutSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowQueuePollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queued:         true,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
