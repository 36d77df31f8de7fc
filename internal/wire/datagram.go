package wire

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

type MediaKind string

const (
	MediaVideo     MediaKind = "video"
	MediaAudio     MediaKind = "audio"
	MediaHeartbeat MediaKind = "heartbeat"
)

// legacyAudioPrefix marks audio carried in raw_data instead of frame.
var legacyAudioPrefix = []byte("a|")

var ErrNoAudio = errors.New("audio datagram carries no frame")

// Datagram is one media-channel record. Fields the server does not inspect
// (timestamps, resolution hints) survive only in the raw bytes it relays.
type Datagram struct {
	Type     MediaKind `json:"type"`
	Username string    `json:"username,omitempty"`
	Frame    []byte    `json:"frame,omitempty"`
	RawData  []byte    `json:"raw_data,omitempty"`
}

func DecodeDatagram(data []byte) (*Datagram, error) {
	var d Datagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d.Type == "" {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrMissingType)
	}
	return &d, nil
}

// SniffUsername extracts the self-reported username of a datagram, or "".
func SniffUsername(data []byte) string {
	var probe struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.Username
}

// AudioFrame returns the PCM chunk of an audio datagram. The legacy layout
// puts it in raw_data behind an "a|" prefix.
func (d *Datagram) AudioFrame() ([]byte, error) {
	if d.RawData != nil {
		frame, ok := bytes.CutPrefix(d.RawData, legacyAudioPrefix)
		if !ok {
			return nil, ErrNoAudio
		}
		return frame, nil
	}
	if d.Frame == nil {
		return nil, ErrNoAudio
	}
	return d.Frame, nil
}

// EncodeMix builds the server-originated audio datagram for one recipient.
// The chunk is carried in both layouts so legacy clients can play it.
func EncodeMix(mix []byte) ([]byte, error) {
	raw := make([]byte, 0, len(legacyAudioPrefix)+len(mix))
	raw = append(append(raw, legacyAudioPrefix...), mix...)
	return json.Marshal(&Datagram{Type: MediaAudio, Username: MixUsername, Frame: mix, RawData: raw})
}

// MixUsername tags datagrams produced by the mixer.
const MixUsername = "SERVER_MIX"
