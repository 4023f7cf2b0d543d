package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Decoding errors.
var (
	ErrMalformed   = errors.New("malformed frame")
	ErrMissingType = errors.New("frame has no type")
	ErrUnknownType = errors.New("unknown frame type")
)

// PeekType returns the frame's type without decoding the rest of it.
func PeekType(raw []byte) (Type, error) {
	if !gjson.ValidBytes(raw) {
		return "", ErrMalformed
	}
	res := gjson.GetBytes(raw, "type")
	if !res.Exists() || res.Type != gjson.String || res.Str == "" {
		return "", ErrMissingType
	}
	return Type(res.Str), nil
}

// Decode parses a raw server frame into one of the known frame types.
// Unknown types and malformed payloads return an error; callers drop such frames.
func Decode(raw []byte) (Frame, error) {
	t, err := PeekType(raw)
	if err != nil {
		return nil, err
	}

	switch t {
	case TypeAuthSuccess:
		return AuthSuccess{}, nil
	case TypeKeepalive:
		return Keepalive{}, nil
	case TypeAuthError:
		var f AuthError
		return decodeInto(raw, t, &f)
	case TypeNewClip:
		var f NewClip
		frame, err := decodeInto(raw, t, &f)
		if err != nil {
			return nil, err
		}
		if f.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, t)
		}
		return frame, nil
	case TypeUpdatedClip:
		var f UpdatedClip
		frame, err := decodeInto(raw, t, &f)
		if err != nil {
			return nil, err
		}
		if f.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, t)
		}
		return frame, nil
	case TypeDeletedClip:
		var f DeletedClip
		frame, err := decodeInto(raw, t, &f)
		if err != nil {
			return nil, err
		}
		if f.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, t)
		}
		return frame, nil
	case TypeClipsCleanedUp:
		var f ClipsCleanedUp
		return decodeInto(raw, t, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// decodeInto unmarshals raw into a pointer to a frame struct and returns the value.
func decodeInto[T Frame](raw []byte, t Type, f *T) (Frame, error) {
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, t, err)
	}
	return *f, nil
}

// EncodeAuth encodes the authentication frame for token.
func EncodeAuth(token string) ([]byte, error) {
	return json.Marshal(AuthFrame{Type: TypeAuth, Token: token})
}

// Encode encodes a server frame with its type discriminator.
// Used by test servers and tooling that replays captured traffic.
func Encode(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case AuthSuccess, Keepalive:
		return json.Marshal(struct {
			Type Type `json:"type"`
		}{v.FrameType()})
	case AuthError:
		return json.Marshal(struct {
			Type Type `json:"type"`
			AuthError
		}{v.FrameType(), v})
	case NewClip:
		return json.Marshal(struct {
			Type Type `json:"type"`
			NewClip
		}{v.FrameType(), v})
	case UpdatedClip:
		return json.Marshal(struct {
			Type Type `json:"type"`
			UpdatedClip
		}{v.FrameType(), v})
	case DeletedClip:
		return json.Marshal(struct {
			Type Type `json:"type"`
			DeletedClip
		}{v.FrameType(), v})
	case ClipsCleanedUp:
		return json.Marshal(struct {
			Type Type `json:"type"`
			ClipsCleanedUp
		}{v.FrameType(), v})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, f)
	}
}
