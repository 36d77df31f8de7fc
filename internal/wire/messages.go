package wire

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

type Type string

const (
	TypeRegisterUDP         Type = "register_udp"
	TypeHeartbeat           Type = "heartbeat"
	TypeChat                Type = "chat"
	TypeVideoStatus         Type = "video_status"
	TypeScreenShareRequest  Type = "screen_share_request"
	TypeScreenShareApproved Type = "screen_share_approved"
	TypeScreenShareDenied   Type = "screen_share_denied"
	TypePresenterChanged    Type = "presenter_changed"
	TypeScreen              Type = "screen"
	TypeScreenStop          Type = "screen_stop"
	TypeFileInfo            Type = "file_info"
	TypeFileRequest         Type = "file_request"
	TypeFileChunk           Type = "file_chunk"
	TypeFileEnd             Type = "file_end"
	TypeFileError           Type = "file_error"
	TypeParticipantsList    Type = "participants_list"
	TypeAvailableFiles      Type = "available_files"
)

const (
	ActionStart = "start"
	ActionStop  = "stop"
)

var (
	ErrMalformed   = errors.New("malformed record")
	ErrMissingType = errors.New("record has no type")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Message is the closed set of control records. Every implementation lives in
// this package; Unknown carries well-formed records of any other type.
type Message interface {
	Kind() Type
	header() *Header
}

// Header is embedded by every record and carries the discriminator.
type Header struct {
	Type Type `json:"type"`
}

func (h *Header) header() *Header { return h }

type RegisterUDP struct {
	Header
	Port     int    `json:"port" validate:"gte=0,lte=65535"`
	Username string `json:"username,omitempty"`
	Session  string `json:"session,omitempty"`
}

type Heartbeat struct {
	Header
	Username string `json:"username,omitempty"`
	UDPPort  *int   `json:"udp_port,omitempty" validate:"omitempty,gte=1,lte=65535"`
}

type Chat struct {
	Header
	Sender    string `json:"sender"`
	Message   string `json:"message,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp any    `json:"timestamp,omitempty"`
}

// Body returns whichever of the two text fields the sender filled.
func (c *Chat) Body() string {
	if c.Message != "" {
		return c.Message
	}
	return c.Text
}

type VideoStatus struct {
	Header
	Username    string `json:"username"`
	IsStreaming bool   `json:"is_streaming"`
}

type ScreenShareRequest struct {
	Header
	Action string `json:"action" validate:"oneof=start stop"`
}

type ScreenShareApproved struct {
	Header
	Message string `json:"message,omitempty"`
}

type ScreenShareDenied struct {
	Header
	Reason           string `json:"reason"`
	CurrentPresenter string `json:"current_presenter"`
}

type PresenterChanged struct {
	Header
	Presenter    string `json:"presenter"`
	IsPresenting bool   `json:"is_presenting"`
}

type Screen struct {
	Header
	Username string `json:"username"`
	Frame    []byte `json:"frame"`
	Format   string `json:"format,omitempty"`
}

type ScreenStop struct {
	Header
	Username string `json:"username"`
}

type FileInfo struct {
	Header
	Filename string `json:"filename" validate:"required"`
	Filesize int64  `json:"filesize" validate:"gte=0"`
	Sender   string `json:"sender,omitempty"`
}

type FileRequest struct {
	Header
	Filename  string `json:"filename" validate:"required"`
	Requester string `json:"requester,omitempty"`
}

type FileChunk struct {
	Header
	Filename  string `json:"filename"`
	Chunk     []byte `json:"chunk"`
	Requester string `json:"requester,omitempty"`
}

type FileEnd struct {
	Header
	Filename  string `json:"filename"`
	Requester string `json:"requester,omitempty"`
}

type FileError struct {
	Header
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

type ParticipantsList struct {
	Header
	Participants []string `json:"participants"`
}

type AvailableFiles struct {
	Header
	Files map[string]int64 `json:"files"`
}

// Unknown is a well-formed record whose type the server does not interpret.
type Unknown struct {
	Header
	Raw []byte `json:"-"`
}

func (*RegisterUDP) Kind() Type         { return TypeRegisterUDP }
func (*Heartbeat) Kind() Type           { return TypeHeartbeat }
func (*Chat) Kind() Type                { return TypeChat }
func (*VideoStatus) Kind() Type         { return TypeVideoStatus }
func (*ScreenShareRequest) Kind() Type  { return TypeScreenShareRequest }
func (*ScreenShareApproved) Kind() Type { return TypeScreenShareApproved }
func (*ScreenShareDenied) Kind() Type   { return TypeScreenShareDenied }
func (*PresenterChanged) Kind() Type    { return TypePresenterChanged }
func (*Screen) Kind() Type              { return TypeScreen }
func (*ScreenStop) Kind() Type          { return TypeScreenStop }
func (*FileInfo) Kind() Type            { return TypeFileInfo }
func (*FileRequest) Kind() Type         { return TypeFileRequest }
func (*FileChunk) Kind() Type           { return TypeFileChunk }
func (*FileEnd) Kind() Type             { return TypeFileEnd }
func (*FileError) Kind() Type           { return TypeFileError }
func (*ParticipantsList) Kind() Type    { return TypeParticipantsList }
func (*AvailableFiles) Kind() Type      { return TypeAvailableFiles }
func (u *Unknown) Kind() Type           { return u.Type }

var constructors = map[Type]func() Message{
	TypeRegisterUDP:         func() Message { return &RegisterUDP{} },
	TypeHeartbeat:           func() Message { return &Heartbeat{} },
	TypeChat:                func() Message { return &Chat{} },
	TypeVideoStatus:         func() Message { return &VideoStatus{} },
	TypeScreenShareRequest:  func() Message { return &ScreenShareRequest{} },
	TypeScreenShareApproved: func() Message { return &ScreenShareApproved{} },
	TypeScreenShareDenied:   func() Message { return &ScreenShareDenied{} },
	TypePresenterChanged:    func() Message { return &PresenterChanged{} },
	TypeScreen:              func() Message { return &Screen{} },
	TypeScreenStop:          func() Message { return &ScreenStop{} },
	TypeFileInfo:            func() Message { return &FileInfo{} },
	TypeFileRequest:         func() Message { return &FileRequest{} },
	TypeFileChunk:           func() Message { return &FileChunk{} },
	TypeFileEnd:             func() Message { return &FileEnd{} },
	TypeFileError:           func() Message { return &FileError{} },
	TypeParticipantsList:    func() Message { return &ParticipantsList{} },
	TypeAvailableFiles:      func() Message { return &AvailableFiles{} },
}

// Decode parses one control record. Records of an unrecognised type decode
// to *Unknown. Any error wraps ErrMalformed.
func Decode(data []byte) (Message, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Type == "" {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrMissingType)
	}
	ctor, ok := constructors[h.Type]
	if !ok {
		return &Unknown{Header: h, Raw: data}, nil
	}
	m := ctor()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, h.Type, err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, h.Type, err)
	}
	return m, nil
}

// Encode serializes m, stamping its type discriminator.
func Encode(m Message) ([]byte, error) {
	if u, ok := m.(*Unknown); ok {
		return u.Raw, nil
	}
	m.header().Type = m.Kind()
	return json.Marshal(m)
}

// MustEncode is Encode for records built by the server itself, whose
// encoding cannot fail.
func MustEncode(m Message) []byte {
	b, err := Encode(m)
	if err != nil {
		panic(fmt.Sprintf("wire: encode %s: %v", m.Kind(), err))
	}
	return b
}
