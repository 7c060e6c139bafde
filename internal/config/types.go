// Package config resolves, parses, validates, and defaults visor configuration.
package config

// Config is the fully materialized runtime configuration used by visor.
type Config struct {
	Server   ServerConfig
	Labels   LabelsConfig
	Camera   CameraConfig
	Frame    FrameConfig
	Trigger  TriggerConfig
	Voice    VoiceConfig
	Question QuestionConfig
	Overlay  OverlayConfig
	Feedback FeedbackConfig
	Cues     CuesConfig
	Debug    DebugConfig
}

// ServerConfig locates the inference server and tunes connection behavior.
type ServerConfig struct {
	URL              string
	SettleDelayMS    int
	DialTimeoutMS    int
	MaxDialElapsedMS int
}

// LabelsConfig locates the class-index label table file.
type LabelsConfig struct {
	File string
}

// CameraConfig selects and tunes the frame source.
type CameraConfig struct {
	Source     string
	Dir        string
	IntervalMS int
}

// FrameConfig controls frame compression per send purpose.
type FrameConfig struct {
	DetectionQuality int
	QuestionQuality  int
	MaxDimension     int
}

// TriggerConfig is the label set that must all be present to confirm stage 1.
type TriggerConfig struct {
	RequiredLabels []string
}

// VoiceConfig registers the recognized trigger phrases.
type VoiceConfig struct {
	DescribePhrase string
	ConfirmPhrase  string
}

// QuestionConfig is the fixed prompt sent with a captured question frame.
type QuestionConfig struct {
	Prompt string
}

// OverlayConfig sizes the target overlay canvas.
type OverlayConfig struct {
	Width     int
	Height    int
	LineWidth int
	TextSize  int
}

// FeedbackConfig controls transient-message display durations.
type FeedbackConfig struct {
	MessageTimeoutMS int
	AnswerTimeoutMS  int
}

// CuesConfig controls confirmation-cue playback.
type CuesConfig struct {
	Enable bool
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	OverlayDumpDir string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
