package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// HashLength is the digest length accepted as a storage key by the edge.
const HashLength = 32

// Hash content-addresses a file. The extension is part of the hashed input so
// identical bytes served under different types never share a key.
func Hash(filePath string, content []byte) string {
	ext := strings.TrimPrefix(path.Ext(filePath), ".")

	h := sha256.New()
	h.Write(content)
	h.Write([]byte(ext))
	return hex.EncodeToString(h.Sum(nil))[:HashLength]
}
