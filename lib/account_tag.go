package lib

import (
	"crypto/sha256"
	"encoding/hex"
)

// AccountTag is an internal ID used to key per-account data (attachment
// registry, maildir folders) without leaking credentials into file names.
func AccountTag(serverURL, username string) string {
	hasher := sha256.New()
	hasher.Write([]byte(username))
	hasher.Write([]byte(":"))
	hasher.Write([]byte(serverURL))
	hasher.Write([]byte("\n"))
	return hex.EncodeToString(hasher.Sum(nil))
}
