package assets

import "strings"

// Class partitions deployable paths.
type Class int

const (
	ClassPublic Class = iota
	ClassServer
	ClassMeta
)

func (c Class) String() string {
	switch c {
	case ClassServer:
		return "server"
	case ClassMeta:
		return "meta"
	default:
		return "public"
	}
}

// ServerPrefix marks compiled worker code.
const ServerPrefix = "/_worker.js/"

// MetaPaths are the root files sent inline with the deployment instead of uploaded.
var MetaPaths = []string{
	"/_redirects",
	"/_headers",
	"/_routes.json",
	"/nitro.json",
	"/hub.config.json",
	"/wrangler.toml",
}

func IsMetaPath(p string) bool {
	for _, m := range MetaPaths {
		if p == m {
			return true
		}
	}
	return false
}

func IsServerPath(p string) bool {
	return strings.HasPrefix(p, ServerPrefix)
}

func IsPublicPath(p string) bool {
	return !IsMetaPath(p) && !IsServerPath(p)
}

// Classify places a deploy path in exactly one class. Meta wins over server.
func Classify(p string) Class {
	switch {
	case IsMetaPath(p):
		return ClassMeta
	case IsServerPath(p):
		return ClassServer
	default:
		return ClassPublic
	}
}
