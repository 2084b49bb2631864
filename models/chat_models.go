package models

import "encoding/json"

// ChatRequest represents an incoming /api/chat request
type ChatRequest struct {
	Message        string `json:"message"`
	IsUsingChatGPT bool   `json:"isUsingChatGPT,omitempty"`
}

// EnvelopeType is the discriminator carried in the "type" field of every response
type EnvelopeType string

const (
	EnvelopeText  EnvelopeType = "text"
	EnvelopeFile  EnvelopeType = "file"
	EnvelopeImage EnvelopeType = "image"
	EnvelopeError EnvelopeType = "error"
)

// Envelope is the single response object returned for every chat request.
// Only the fields belonging to Type are meaningful; use the constructors below.
type Envelope struct {
	Type      EnvelopeType
	Response  string
	Filename  string
	URL       string
	Message   string
	ImageData string
}

// TextEnvelope wraps a plain conversational answer
func TextEnvelope(response string) Envelope {
	return Envelope{Type: EnvelopeText, Response: response}
}

// FileEnvelope references a downloadable artifact
func FileEnvelope(filename, url, message string) Envelope {
	return Envelope{Type: EnvelopeFile, Filename: filename, URL: url, Message: message}
}

// ImageEnvelope references an image artifact and carries it inline as a data URI
func ImageEnvelope(filename, imageData, url, message string) Envelope {
	return Envelope{Type: EnvelopeImage, Filename: filename, ImageData: imageData, URL: url, Message: message}
}

// ErrorEnvelope reports a failure in-band
func ErrorEnvelope(response string) Envelope {
	return Envelope{Type: EnvelopeError, Response: response}
}

type textWire struct {
	Type     EnvelopeType `json:"type"`
	Response string       `json:"response"`
}

type fileWire struct {
	Type     EnvelopeType `json:"type"`
	Filename string       `json:"filename"`
	URL      string       `json:"url"`
	Message  string       `json:"message"`
}

type imageWire struct {
	Type      EnvelopeType `json:"type"`
	Filename  string       `json:"filename"`
	ImageData string       `json:"imageData"`
	URL       string       `json:"url"`
	Message   string       `json:"message"`
}

// MarshalJSON emits the discriminator plus exactly the fields of the envelope's case
func (e Envelope) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EnvelopeFile:
		return json.Marshal(fileWire{Type: e.Type, Filename: e.Filename, URL: e.URL, Message: e.Message})
	case EnvelopeImage:
		return json.Marshal(imageWire{Type: e.Type, Filename: e.Filename, ImageData: e.ImageData, URL: e.URL, Message: e.Message})
	case EnvelopeText, EnvelopeError:
		return json.Marshal(textWire{Type: e.Type, Response: e.Response})
	default:
		return json.Marshal(textWire{Type: EnvelopeError, Response: "unknown envelope type: " + string(e.Type)})
	}
}

// UnmarshalJSON decodes any envelope case; used by clients and tests
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire imageWire
	var resp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	*e = Envelope{
		Type:      wire.Type,
		Response:  resp.Response,
		Filename:  wire.Filename,
		URL:       wire.URL,
		Message:   wire.Message,
		ImageData: wire.ImageData,
	}
	return nil
}
