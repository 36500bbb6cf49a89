// Package identity classifies raw provider identifiers and extracts phone
// numbers from the ones that encode one.
package identity

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// Kind is the addressing scheme of an identifier.
type Kind int

const (
	KindUnknown Kind = iota
	KindPhone
	KindLinked
	KindGroup
	KindBroadcast
)

func (k Kind) String() string {
	switch k {
	case KindPhone:
		return "phone"
	case KindLinked:
		return "linked"
	case KindGroup:
		return "group"
	case KindBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// StatusBroadcast is the pseudo-chat carrying status updates.
var StatusBroadcast = types.StatusBroadcastJID.String()

// ID is a parsed identifier. Raw is kept verbatim; it is the contact key.
type ID struct {
	Raw    string
	Local  string
	Server string
	Kind   Kind
}

// Parse splits raw into local part and domain. It never fails; identifiers
// it cannot classify get KindUnknown.
func Parse(raw string) ID {
	id := ID{Raw: raw}
	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		id.Local = raw
		return id
	}
	id.Local, id.Server = raw[:at], raw[at+1:]
	switch id.Server {
	case types.DefaultUserServer, types.LegacyUserServer:
		id.Kind = KindPhone
	case types.HiddenUserServer:
		id.Kind = KindLinked
	case types.GroupServer:
		id.Kind = KindGroup
	case types.BroadcastServer:
		id.Kind = KindBroadcast
	}
	return id
}

// Phone returns the local part when the identifier is phone-routed and the
// local part is digits with an optional single leading '+'.
func (id ID) Phone() (string, bool) {
	if id.Kind != KindPhone || !isPhoneNumber(id.Local) {
		return "", false
	}
	return id.Local, true
}

// DerivePhone is shorthand for Parse(raw).Phone().
func DerivePhone(raw string) (string, bool) {
	return Parse(raw).Phone()
}

// IsPlaceholder reports whether stored is merely the local part of a linked
// identifier rather than a confirmed phone. Only raw's own local part is
// compared.
func IsPlaceholder(raw, stored string) bool {
	id := Parse(raw)
	return id.Kind == KindLinked && stored != "" && stored == id.Local
}

// IsStatusBroadcast reports whether raw is the status pseudo-chat.
func IsStatusBroadcast(raw string) bool {
	return raw == StatusBroadcast
}

func isPhoneNumber(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
