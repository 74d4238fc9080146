package assets

import (
	"encoding/base64"
	"unicode/utf8"
)

// FileArtifact is one deployable file of the build output. It is never mutated after the catalog builds it.
type FileArtifact struct {
	Path           string `json:"path"`
	Data           []byte `json:"-"`
	Size           int64  `json:"size"`
	CompressedSize int64  `json:"compressedSize"`
	ContentType    string `json:"contentType"`
	Hash           string `json:"hash"`
}

func (f FileArtifact) Class() Class {
	return Classify(f.Path)
}

// Base64 returns the content encoded for JSON transports.
func (f FileArtifact) Base64() string {
	return base64.StdEncoding.EncodeToString(f.Data)
}

// InlineFile is a file sent in the body of the complete call.
type InlineFile struct {
	Path     string `json:"path"`
	Data     string `json:"data"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
}

// Inline encodes text files as utf-8 and anything else (wasm, images) as base64.
func (f FileArtifact) Inline() InlineFile {
	if utf8.Valid(f.Data) {
		return InlineFile{Path: f.Path, Data: string(f.Data), Size: f.Size, Encoding: "utf-8"}
	}
	return InlineFile{Path: f.Path, Data: f.Base64(), Size: f.Size, Encoding: "base64"}
}

// TotalSize sums raw sizes.
func TotalSize(files []FileArtifact) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
