// Package storage is the durable client-side key/value store. It stands in
// for browser local storage: a handful of well-known keys, no schema.
package storage

// Well-known keys. Only the session store writes the credential; the CLI
// owns the profile cache and theme preference.
const (
	KeyCredential = "credential"
	KeyProfile    = "profile"
	KeyTheme      = "theme"
)

// Store persists string values under string keys.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
