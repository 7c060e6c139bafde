package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:              "ws://127.0.0.1:8000/ws",
			SettleDelayMS:    500,
			DialTimeoutMS:    4000,
			MaxDialElapsedMS: 8000,
		},
		Labels: LabelsConfig{File: ""},
		Camera: CameraConfig{
			Source:     "still",
			Dir:        "",
			IntervalMS: 200,
		},
		Frame: FrameConfig{
			DetectionQuality: 50,
			QuestionQuality:  90,
			MaxDimension:     1280,
		},
		Trigger: TriggerConfig{
			RequiredLabels: []string{"cell phone", "cup"},
		},
		Voice: VoiceConfig{
			DescribePhrase: "describe scene",
			ConfirmPhrase:  "ok",
		},
		Question: QuestionConfig{
			Prompt: "Based on this image, please describe the scene in front of me.",
		},
		Overlay: OverlayConfig{
			Width:     640,
			Height:    480,
			LineWidth: 3,
			TextSize:  18,
		},
		Feedback: FeedbackConfig{
			MessageTimeoutMS: 3000,
			AnswerTimeoutMS:  10000,
		},
		Cues:  CuesConfig{Enable: true},
		Debug: DebugConfig{},
	}
}
