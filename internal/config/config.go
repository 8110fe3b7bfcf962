// Package config provides the configuration schema, loader, file watcher, and
// provider registry for the Talkgate capture daemon.
package config

import "time"

// LogLevel controls log verbosity for the Talkgate daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Mode selects the activation policy gating microphone audio.
type Mode string

const (
	// ModeContinuous transmits every captured chunk.
	ModeContinuous Mode = "continuous"

	// ModePushToTalk transmits while a bound key is held.
	ModePushToTalk Mode = "push_to_talk"

	// ModeVoiceActivity transmits while the classifier reports speech.
	ModeVoiceActivity Mode = "voice_activity"
)

// IsValid reports whether m is a recognised activation mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeContinuous, ModePushToTalk, ModeVoiceActivity:
		return true
	}
	return false
}

// Config is the root configuration structure for Talkgate.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Capture    CaptureConfig    `yaml:"capture"`
	Activation ActivationConfig `yaml:"activation"`
	Transport  TransportConfig  `yaml:"transport"`
	Episodes   EpisodesConfig   `yaml:"episodes"`
}

// ServerConfig holds the ops HTTP endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the ops server (health + metrics)
	// listens on (e.g., ":8080"). Empty disables the ops server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. This is the one knob the config watcher
	// applies at runtime.
	LogLevel LogLevel `yaml:"log_level"`
}

// CaptureConfig selects and tunes the capture source.
type CaptureConfig struct {
	// Source selects the registered capture implementation (e.g., "wav").
	Source string `yaml:"source"`

	// Path is the input file for file-backed sources.
	Path string `yaml:"path"`

	// SampleRate is the capture rate in Hz the pipeline should assume.
	// File-backed sources override it with the file's own rate.
	SampleRate int `yaml:"sample_rate"`

	// ChunkMs is the duration of each emitted chunk in milliseconds.
	// Zero means the source's default (20 ms).
	ChunkMs int `yaml:"chunk_ms"`
}

// ActivationConfig selects the activation mode and its per-mode settings.
// Mode changes require a restart; the watcher rejects them.
type ActivationConfig struct {
	Mode          Mode                `yaml:"mode"`
	PushToTalk    PushToTalkConfig    `yaml:"push_to_talk"`
	VoiceActivity VoiceActivityConfig `yaml:"voice_activity"`
}

// PushToTalkConfig holds push-to-talk settings.
type PushToTalkConfig struct {
	// Key is the key name registered with the key binder (e.g., "t").
	Key string `yaml:"key"`
}

// VoiceActivityConfig holds voice-activity settings.
type VoiceActivityConfig struct {
	// Engine selects the registered classifier backend (e.g., "energy").
	Engine string `yaml:"engine"`

	// MinNoiseLevel / MaxNoiseLevel clamp the classifier's adaptive speech
	// threshold; both are normalized RMS amplitudes in [0, 1]. Equal values
	// pin the threshold.
	MinNoiseLevel float64 `yaml:"min_noise_level"`
	MaxNoiseLevel float64 `yaml:"max_noise_level"`

	// NoiseCaptureDuration is how much leading audio the classifier spends
	// measuring the ambient noise floor.
	NoiseCaptureDuration time.Duration `yaml:"noise_capture_duration"`

	// MinBacklogBytes is the pre-roll floor in bytes. Zero selects the
	// built-in default (≈150 ms).
	MinBacklogBytes int `yaml:"min_backlog_bytes"`
}

// TransportConfig selects the voice transport. Name "none" (or empty) runs
// the pipeline against a discarding sink, which is useful for local testing
// of activation behaviour.
type TransportConfig struct {
	// Name selects the registered transport implementation
	// ("discord", "websocket", "none").
	Name string `yaml:"name"`

	Discord   DiscordConfig   `yaml:"discord"`
	Websocket WebsocketConfig `yaml:"websocket"`
}

// DiscordConfig holds Discord voice transport settings.
type DiscordConfig struct {
	// Token is the bot token used to open the discordgo session.
	Token string `yaml:"token"`

	// GuildID and ChannelID identify the voice channel to join.
	GuildID   string `yaml:"guild_id"`
	ChannelID string `yaml:"channel_id"`
}

// WebsocketConfig holds WebSocket voice transport settings.
type WebsocketConfig struct {
	// URL is the ws:// or wss:// endpoint dialed once per talking episode.
	URL string `yaml:"url"`

	// BearerToken, when set, is sent as an Authorization header on dial.
	BearerToken string `yaml:"bearer_token"`
}

// EpisodesConfig configures the talking-episode journal.
type EpisodesConfig struct {
	// PostgresDSN enables the PostgreSQL-backed journal. Empty keeps
	// episodes in memory only.
	PostgresDSN string `yaml:"postgres_dsn"`
}
