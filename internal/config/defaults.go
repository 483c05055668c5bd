package config

const (
	defaultStagingDir        = "~/.local/share/slidecast/staging"
	defaultOutputDir         = "~/slidecast/videos"
	defaultLogDir            = "~/.local/share/slidecast/logs"
	defaultInboxDir          = "~/slidecast/inbox"
	defaultAPIBind           = "127.0.0.1:7519"
	defaultLogRetentionDays  = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120

	defaultEdgeVoice    = "en-US-AriaNeural"
	defaultFishBaseURL  = "https://api.fish.audio/v1"
	defaultOpenAIURL    = "https://api.openai.com/v1"
	defaultOpenAIModel  = "tts-1"
	defaultOpenAIVoice  = "alloy"
	defaultAzureVoice   = "en-US-JennyNeural"
	defaultTTSLanguage  = "en-US"
	defaultMaxAttempts  = 3
	defaultRetryBaseMS  = 1000
	defaultRetryMaxMS   = 10000
	defaultTTSTimeout   = 30
	defaultRequestsPS   = 2.0
	defaultSilenceFloor = 1.0
	defaultCharsPerSec  = 3.5
	defaultSampleRate   = 22050

	defaultVideoWidth   = 1920
	defaultVideoHeight  = 1080
	defaultVideoFPS     = 24
	defaultVideoBitrate = "2000k"
	defaultVideoPreset  = "medium"

	defaultMaxLineLength = 42

	defaultNotifyDedupWindowSeconds = 600
)

// EngineNames lists the known speech engines in the default dispatch order.
var EngineNames = []string{"edge", "fish", "openai", "azure"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			InboxDir:   defaultInboxDir,
			APIBind:    defaultAPIBind,
		},
		TTS: TTS{
			EngineOrder:           append([]string{}, EngineNames...),
			Language:              defaultTTSLanguage,
			MaxAttempts:           defaultMaxAttempts,
			RetryBaseDelayMS:      defaultRetryBaseMS,
			RetryMaxDelayMS:       defaultRetryMaxMS,
			RequestTimeout:        defaultTTSTimeout,
			RequestsPerSecond:     defaultRequestsPS,
			SilenceMinSeconds:     defaultSilenceFloor,
			SilenceCharsPerSecond: defaultCharsPerSec,
			SampleRate:            defaultSampleRate,
			Edge: Edge{
				Voice: defaultEdgeVoice,
			},
			Fish: Fish{
				BaseURL: defaultFishBaseURL,
			},
			OpenAI: OpenAI{
				BaseURL: defaultOpenAIURL,
				Model:   defaultOpenAIModel,
				Voice:   defaultOpenAIVoice,
			},
			Azure: Azure{
				Voice: defaultAzureVoice,
			},
		},
		Video: Video{
			Width:   defaultVideoWidth,
			Height:  defaultVideoHeight,
			FPS:     defaultVideoFPS,
			Bitrate: defaultVideoBitrate,
			Preset:  defaultVideoPreset,
		},
		Subtitles: Subtitles{
			Enabled:       true,
			MuxIntoVideo:  true,
			MaxLineLength: defaultMaxLineLength,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			JobComplete:        true,
			Errors:             true,
			DegradedAudio:      true,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			StageTimeout:       3600,
			WorkerCount:        2,
			UnitWorkers:        4,
			InboxSettleSeconds: 3,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
