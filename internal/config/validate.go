package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	serverURL := strings.TrimSpace(cfg.Server.URL)
	if serverURL == "" {
		return nil, fmt.Errorf("server.url must not be empty")
	}
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("server.url scheme must be ws or wss, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("server.url must include a host")
	}
	if cfg.Server.SettleDelayMS < 0 {
		return nil, fmt.Errorf("server.settle_delay_ms must be >= 0")
	}
	if cfg.Server.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("server.dial_timeout_ms must be > 0")
	}
	if cfg.Server.MaxDialElapsedMS < 0 {
		return nil, fmt.Errorf("server.max_dial_elapsed_ms must be >= 0")
	}

	source := strings.ToLower(strings.TrimSpace(cfg.Camera.Source))
	if source != "still" && source != "dir" {
		return nil, fmt.Errorf("camera.source must be one of: still, dir")
	}
	if source == "dir" && strings.TrimSpace(cfg.Camera.Dir) == "" {
		return nil, fmt.Errorf("camera.dir must not be empty when camera.source=dir")
	}
	if cfg.Camera.IntervalMS <= 0 {
		return nil, fmt.Errorf("camera.interval_ms must be > 0")
	}

	if cfg.Frame.DetectionQuality < 1 || cfg.Frame.DetectionQuality > 100 {
		return nil, fmt.Errorf("frame.detection_quality must be in [1,100]")
	}
	if cfg.Frame.QuestionQuality < 1 || cfg.Frame.QuestionQuality > 100 {
		return nil, fmt.Errorf("frame.question_quality must be in [1,100]")
	}
	if cfg.Frame.MaxDimension < 0 {
		return nil, fmt.Errorf("frame.max_dimension must be >= 0")
	}

	if len(cfg.Trigger.RequiredLabels) == 0 {
		return nil, fmt.Errorf("trigger.required_labels must not be empty")
	}
	seen := make(map[string]bool, len(cfg.Trigger.RequiredLabels))
	for _, label := range cfg.Trigger.RequiredLabels {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("trigger.required_labels contains an empty label")
		}
		if seen[label] {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("trigger.required_labels lists %q more than once", label)})
		}
		seen[label] = true
	}

	describe := strings.TrimSpace(cfg.Voice.DescribePhrase)
	confirm := strings.TrimSpace(cfg.Voice.ConfirmPhrase)
	if describe == "" {
		return nil, fmt.Errorf("voice.describe_phrase must not be empty")
	}
	if confirm == "" {
		return nil, fmt.Errorf("voice.confirm_phrase must not be empty")
	}
	if strings.EqualFold(describe, confirm) {
		return nil, fmt.Errorf("voice.describe_phrase and voice.confirm_phrase must differ")
	}

	if strings.TrimSpace(cfg.Question.Prompt) == "" {
		return nil, fmt.Errorf("question.prompt must not be empty")
	}

	if cfg.Overlay.Width < 0 || cfg.Overlay.Height < 0 {
		return nil, fmt.Errorf("overlay dimensions must be >= 0")
	}
	if cfg.Overlay.Width == 0 || cfg.Overlay.Height == 0 {
		warnings = append(warnings, Warning{Message: "overlay canvas has zero area; overlay rendering is disabled"})
	}

	if cfg.Feedback.MessageTimeoutMS < 0 || cfg.Feedback.AnswerTimeoutMS < 0 {
		return nil, fmt.Errorf("feedback timeouts must be >= 0")
	}

	if strings.TrimSpace(cfg.Labels.File) == "" {
		warnings = append(warnings, Warning{Message: "labels.file is unset; all classes will resolve to \"unknown\""})
	}

	return warnings, nil
}
