package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Server   *jsoncServer   `json:"server"`
	Labels   *jsoncLabels   `json:"labels"`
	Camera   *jsoncCamera   `json:"camera"`
	Frame    *jsoncFrame    `json:"frame"`
	Trigger  *jsoncTrigger  `json:"trigger"`
	Voice    *jsoncVoice    `json:"voice"`
	Question *jsoncQuestion `json:"question"`
	Overlay  *jsoncOverlay  `json:"overlay"`
	Feedback *jsoncFeedback `json:"feedback"`
	Cues     *jsoncCues     `json:"cues"`
	Debug    *jsoncDebug    `json:"debug"`
}

type jsoncServer struct {
	URL              *string `json:"url"`
	SettleDelayMS    *int    `json:"settle_delay_ms"`
	DialTimeoutMS    *int    `json:"dial_timeout_ms"`
	MaxDialElapsedMS *int    `json:"max_dial_elapsed_ms"`
}

type jsoncLabels struct {
	File *string `json:"file"`
}

type jsoncCamera struct {
	Source     *string `json:"source"`
	Dir        *string `json:"dir"`
	IntervalMS *int    `json:"interval_ms"`
}

type jsoncFrame struct {
	DetectionQuality *int `json:"detection_quality"`
	QuestionQuality  *int `json:"question_quality"`
	MaxDimension     *int `json:"max_dimension"`
}

type jsoncTrigger struct {
	RequiredLabels *jsoncStringList `json:"required_labels"`
}

type jsoncVoice struct {
	DescribePhrase *string `json:"describe_phrase"`
	ConfirmPhrase  *string `json:"confirm_phrase"`
}

type jsoncQuestion struct {
	Prompt *string `json:"prompt"`
}

type jsoncOverlay struct {
	Width     *int `json:"width"`
	Height    *int `json:"height"`
	LineWidth *int `json:"line_width"`
	TextSize  *int `json:"text_size"`
}

type jsoncFeedback struct {
	MessageTimeoutMS *int `json:"message_timeout_ms"`
	AnswerTimeoutMS  *int `json:"answer_timeout_ms"`
}

type jsoncCues struct {
	Enable *bool `json:"enable"`
}

type jsoncDebug struct {
	OverlayDumpDir *string `json:"overlay_dump_dir"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

// Parse reads configuration content as JSONC layered over base.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, validatedWarnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.Server != nil {
		if payload.Server.URL != nil {
			cfg.Server.URL = strings.TrimSpace(*payload.Server.URL)
		}
		if payload.Server.SettleDelayMS != nil {
			cfg.Server.SettleDelayMS = *payload.Server.SettleDelayMS
		}
		if payload.Server.DialTimeoutMS != nil {
			cfg.Server.DialTimeoutMS = *payload.Server.DialTimeoutMS
		}
		if payload.Server.MaxDialElapsedMS != nil {
			cfg.Server.MaxDialElapsedMS = *payload.Server.MaxDialElapsedMS
		}
	}

	if payload.Labels != nil && payload.Labels.File != nil {
		cfg.Labels.File = strings.TrimSpace(*payload.Labels.File)
	}

	if payload.Camera != nil {
		if payload.Camera.Source != nil {
			cfg.Camera.Source = strings.TrimSpace(*payload.Camera.Source)
		}
		if payload.Camera.Dir != nil {
			cfg.Camera.Dir = strings.TrimSpace(*payload.Camera.Dir)
		}
		if payload.Camera.IntervalMS != nil {
			cfg.Camera.IntervalMS = *payload.Camera.IntervalMS
		}
	}

	if payload.Frame != nil {
		if payload.Frame.DetectionQuality != nil {
			cfg.Frame.DetectionQuality = *payload.Frame.DetectionQuality
		}
		if payload.Frame.QuestionQuality != nil {
			cfg.Frame.QuestionQuality = *payload.Frame.QuestionQuality
		}
		if payload.Frame.MaxDimension != nil {
			cfg.Frame.MaxDimension = *payload.Frame.MaxDimension
		}
	}

	if payload.Trigger != nil && payload.Trigger.RequiredLabels != nil {
		cfg.Trigger.RequiredLabels = cfg.Trigger.RequiredLabels[:0]
		for _, label := range *payload.Trigger.RequiredLabels {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			cfg.Trigger.RequiredLabels = append(cfg.Trigger.RequiredLabels, label)
		}
	}

	if payload.Voice != nil {
		if payload.Voice.DescribePhrase != nil {
			cfg.Voice.DescribePhrase = strings.TrimSpace(*payload.Voice.DescribePhrase)
		}
		if payload.Voice.ConfirmPhrase != nil {
			cfg.Voice.ConfirmPhrase = strings.TrimSpace(*payload.Voice.ConfirmPhrase)
		}
	}

	if payload.Question != nil && payload.Question.Prompt != nil {
		cfg.Question.Prompt = strings.TrimSpace(*payload.Question.Prompt)
	}

	if payload.Overlay != nil {
		if payload.Overlay.Width != nil {
			cfg.Overlay.Width = *payload.Overlay.Width
		}
		if payload.Overlay.Height != nil {
			cfg.Overlay.Height = *payload.Overlay.Height
		}
		if payload.Overlay.LineWidth != nil {
			cfg.Overlay.LineWidth = *payload.Overlay.LineWidth
		}
		if payload.Overlay.TextSize != nil {
			cfg.Overlay.TextSize = *payload.Overlay.TextSize
		}
	}

	if payload.Feedback != nil {
		if payload.Feedback.MessageTimeoutMS != nil {
			cfg.Feedback.MessageTimeoutMS = *payload.Feedback.MessageTimeoutMS
		}
		if payload.Feedback.AnswerTimeoutMS != nil {
			cfg.Feedback.AnswerTimeoutMS = *payload.Feedback.AnswerTimeoutMS
		}
	}

	if payload.Cues != nil && payload.Cues.Enable != nil {
		cfg.Cues.Enable = *payload.Cues.Enable
	}

	if payload.Debug != nil && payload.Debug.OverlayDumpDir != nil {
		cfg.Debug.OverlayDumpDir = strings.TrimSpace(*payload.Debug.OverlayDumpDir)
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out.WriteByte(ch)
		case '/':
			if i+1 < len(content) && content[i+1] == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if i+1 < len(content) && content[i+1] == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
			out.WriteByte(ch)
		default:
			out.WriteByte(ch)
		}
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment")
	}
	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) {
				next := content[j]
				if next == ' ' || next == '\t' || next == '\n' || next == '\r' {
					j++
					continue
				}
				break
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				out.WriteByte(' ')
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
