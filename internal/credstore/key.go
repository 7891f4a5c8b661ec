package credstore

import (
	"fmt"
	"strings"
)

// Key addresses one credential blob in the external store. It is the single
// source of truth for cache addressing; call sites must not rebuild the
// string form inline.
type Key struct {
	subjectID string
	clientID  string
}

// NewKey builds a key from the subject and relying-party client id. Both
// parts are mandatory.
func NewKey(subjectID, clientID string) (Key, error) {
	subjectID = strings.TrimSpace(subjectID)
	clientID = strings.TrimSpace(clientID)
	if subjectID == "" {
		return Key{}, fmt.Errorf("%w: empty subject id", ErrInvalidKey)
	}
	if clientID == "" {
		return Key{}, fmt.Errorf("%w: empty client id", ErrInvalidKey)
	}
	return Key{subjectID: subjectID, clientID: clientID}, nil
}

// SubjectID returns the subject part of the key.
func (k Key) SubjectID() string { return k.subjectID }

// ClientID returns the relying-party part of the key.
func (k Key) ClientID() string { return k.clientID }

// String returns the canonical external store key.
func (k Key) String() string {
	return fmt.Sprintf("UserId:%s::ClientId:%s", k.subjectID, k.clientID)
}
