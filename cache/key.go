package cache

import (
	"crypto/md5"
	"encoding/hex"
)

// IsValidKey returns true if key is non-empty and only has [0-9a-zA-Z_]
// characters. The same rule applies to store names.
func IsValidKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// KeyForPath returns md5 hex of path. This is how the integrity scanner
// keys entries about files.
func KeyForPath(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}
