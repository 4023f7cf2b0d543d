package wire

import "strings"

// Type is the value of a frame's "type" field.
type Type string

// Frame types.
const (
	TypeAuth        Type = "auth"
	TypeAuthSuccess Type = "auth_success"
	TypeAuthError   Type = "auth_error"

	TypeNewClip        Type = "new_clip"
	TypeUpdatedClip    Type = "updated_clip"
	TypeDeletedClip    Type = "deleted_clip"
	TypeClipsCleanedUp Type = "clips_cleaned_up"

	TypeKeepalive Type = "ping"
)

// Close codes with reserved meaning.
const (
	CloseNormal          = 1000
	CloseLivenessTimeout = 4000
	CloseAuthRejected    = 4001
)

// IsNotification reports whether t is one of the four notification variants.
func (t Type) IsNotification() bool {
	switch t {
	case TypeNewClip, TypeUpdatedClip, TypeDeletedClip, TypeClipsCleanedUp:
		return true
	default:
		return false
	}
}

// IsAuthResult reports whether t acknowledges an auth frame.
func (t Type) IsAuthResult() bool {
	return t == TypeAuthSuccess || t == TypeAuthError
}

// Frame is a decoded server frame.
type Frame interface {
	FrameType() Type
}

// Notification is a frame delivered to application handlers.
type Notification interface {
	Frame
	notification()
}

// AuthFrame is the single credential frame a client sends after open.
type AuthFrame struct {
	Type  Type   `json:"type"`
	Token string `json:"token"`
}

// AuthSuccess is a positive acknowledgment of an AuthFrame.
type AuthSuccess struct{}

// AuthError is a negative acknowledgment of an AuthFrame.
type AuthError struct {
	Message string `json:"message"`
}

// Keepalive is an application-level ping from the server.
type Keepalive struct{}

// NewClip announces a newly stored clip.
type NewClip struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// UpdatedClip announces a modified clip.
type UpdatedClip struct {
	ID string `json:"id"`
}

// DeletedClip announces a removed clip.
type DeletedClip struct {
	ID string `json:"id"`
}

// ClipsCleanedUp announces a bulk removal.
type ClipsCleanedUp struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func (AuthSuccess) FrameType() Type    { return TypeAuthSuccess }
func (AuthError) FrameType() Type      { return TypeAuthError }
func (Keepalive) FrameType() Type      { return TypeKeepalive }
func (NewClip) FrameType() Type        { return TypeNewClip }
func (UpdatedClip) FrameType() Type    { return TypeUpdatedClip }
func (DeletedClip) FrameType() Type    { return TypeDeletedClip }
func (ClipsCleanedUp) FrameType() Type { return TypeClipsCleanedUp }

func (NewClip) notification()        {}
func (UpdatedClip) notification()    {}
func (DeletedClip) notification()    {}
func (ClipsCleanedUp) notification() {}

// Excerpt returns content shortened to at most n runes, for logs.
func Excerpt(content string, n int) string {
	content = strings.TrimSpace(content)
	r := []rune(content)
	if n <= 0 || len(r) <= n {
		return content
	}
	return string(r[:n]) + "…"
}
