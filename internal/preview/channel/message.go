package channel

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/quickpen/backend/internal/preview/extract"
)

// Wire message types. These two shapes are the entire protocol between host
// and sandbox; any transport that delivers JSON records in order suffices.
const (
	TypeReady  = "ready"
	TypeUpdate = "update"
)

// Update is the host→sandbox message. All three layers are always present:
// markup and stylesheet replacement is idempotent, and the sandbox
// self-deduplicates the script layer against its own last executed script.
type Update struct {
	Type string `json:"type"`
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// Envelope is the inbound sandbox→host frame; only the type is inspected.
type Envelope struct {
	Type string `json:"type"`
}

// NewUpdate wraps content layers in an update message.
func NewUpdate(layers extract.Layers) Update {
	return Update{
		Type: TypeUpdate,
		HTML: layers.HTML,
		CSS:  layers.CSS,
		JS:   layers.JS,
	}
}

// EncodeUpdate marshals an update for the wire.
func EncodeUpdate(u Update) ([]byte, error) {
	data, err := sonic.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	return data, nil
}

// DecodeEnvelope unmarshals an inbound frame far enough to dispatch on type.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode message: %w", err)
	}
	return env, nil
}
