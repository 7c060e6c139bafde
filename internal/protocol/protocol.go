// Package protocol serializes and parses the JSON wire messages exchanged
// with the inference server.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Wire-stable type discriminators.
const (
	TypeDetection        = "detection"
	TypeQuestion         = "question"
	TypeAudioQuestion    = "audio_question"
	TypeDetectionResults = "detection_results"
	TypeAnswer           = "llm_answer"
)

// Box is a normalized bounding rectangle, all coordinates in [0,1].
type Box struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Detection is one server-reported object: a normalized box plus a class
// index into the label table.
type Detection struct {
	Box     Box
	ClassID int
}

// Kind tags a parsed incoming message.
type Kind int

const (
	// KindIgnored marks messages with an unrecognized type. Not an error.
	KindIgnored Kind = iota
	KindDetections
	KindAnswer
)

// Incoming is one parsed server message.
type Incoming struct {
	Kind       Kind
	Detections []Detection
	Answer     string
}

type outgoingDetection struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}

type outgoingQuestion struct {
	Type  string `json:"type"`
	Image string `json:"image"`
	Text  string `json:"text"`
}

type outgoingAudioQuestion struct {
	Type  string `json:"type"`
	Image string `json:"image"`
	Audio string `json:"audio"`
}

type incomingEnvelope struct {
	Type       string             `json:"type"`
	Detections *incomingDetection `json:"detections"`
	Text       string             `json:"text"`
}

type incomingDetection struct {
	Boxes   [][]float64 `json:"boxes"`
	Classes []int       `json:"classes"`
}

// EncodeDetectionFrame serializes one detection request carrying a
// compressed frame. The image bytes are base64-encoded without line wrapping.
func EncodeDetectionFrame(image []byte) ([]byte, error) {
	payload, err := json.Marshal(outgoingDetection{
		Type:  TypeDetection,
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("encode detection frame: %w", err)
	}
	return payload, nil
}

// EncodeQuestion serializes one natural-language question about a frame.
func EncodeQuestion(image []byte, text string) ([]byte, error) {
	payload, err := json.Marshal(outgoingQuestion{
		Type:  TypeQuestion,
		Image: base64.StdEncoding.EncodeToString(image),
		Text:  text,
	})
	if err != nil {
		return nil, fmt.Errorf("encode question: %w", err)
	}
	return payload, nil
}

// EncodeAudioQuestion serializes a question whose text is replaced by an
// encoded audio clip for server-side transcription.
func EncodeAudioQuestion(image, audio []byte) ([]byte, error) {
	payload, err := json.Marshal(outgoingAudioQuestion{
		Type:  TypeAudioQuestion,
		Image: base64.StdEncoding.EncodeToString(image),
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return nil, fmt.Errorf("encode audio question: %w", err)
	}
	return payload, nil
}

// Decode parses one incoming server message. Messages with an unknown type
// decode to KindIgnored with no error; malformed JSON or a missing required
// field is an error the caller drops and logs, never fatal.
func Decode(raw []byte) (Incoming, error) {
	var envelope incomingEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Incoming{}, fmt.Errorf("decode message: %w", err)
	}

	switch envelope.Type {
	case TypeDetectionResults:
		if envelope.Detections == nil {
			return Incoming{}, fmt.Errorf("detection_results message missing detections")
		}
		return Incoming{
			Kind:       KindDetections,
			Detections: zipDetections(*envelope.Detections),
		}, nil
	case TypeAnswer:
		return Incoming{Kind: KindAnswer, Answer: envelope.Text}, nil
	default:
		return Incoming{Kind: KindIgnored}, nil
	}
}

// zipDetections pairs boxes with classes by index. Entries whose box is not
// a 4-float array or that have no matching class are dropped individually;
// the rest of the batch survives.
func zipDetections(payload incomingDetection) []Detection {
	n := len(payload.Boxes)
	if len(payload.Classes) < n {
		n = len(payload.Classes)
	}

	detections := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		box := payload.Boxes[i]
		if len(box) != 4 {
			continue
		}
		detections = append(detections, Detection{
			Box:     Box{Left: box[0], Top: box[1], Right: box[2], Bottom: box[3]},
			ClassID: payload.Classes[i],
		})
	}
	return detections
}
