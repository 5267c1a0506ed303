package core

import (
	"path"
	"strings"
)

// isAbsolutePath reports whether p looks like an absolute path on either
// Windows or POSIX, independent of the host OS the registry happens to run
// on (a persisted blob may carry paths written on a different platform).
func isAbsolutePath(p string) bool {
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") {
		return true
	}
	// Windows drive letter, e.g. "C:\..." or "C:/...".
	if len(p) >= 3 && isASCIILetter(p[0]) && p[1] == ':' && (p[2] == '\\' || p[2] == '/') {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// toRelative converts an absolute path rooted at gameRoot into a
// forward-slash relative path. If p is already relative it is only
// separator-normalized and cleaned.
func toRelative(p, gameRoot string) (string, bool) {
	p = strings.ReplaceAll(p, "\\", "/")
	gameRoot = strings.ReplaceAll(gameRoot, "\\", "/")
	gameRoot = strings.TrimSuffix(gameRoot, "/")
	dir := strings.HasSuffix(p, "/") && p != "/"

	var rel string
	switch {
	case !isAbsolutePath(p):
		rel = path.Clean(p)
	case gameRoot == "":
		return "", false
	case !strings.HasPrefix(strings.ToLower(p), strings.ToLower(gameRoot)):
		return "", false
	default:
		rel = path.Clean(strings.TrimPrefix(p[len(gameRoot):], "/"))
	}
	if dir {
		rel += "/"
	}
	return rel, true
}

// relativizePath is the best-effort form used during schema upgrade: it
// falls back to a separator-normalized copy of p when gameRoot can't
// resolve the prefix, rather than failing the whole migration.
func relativizePath(p, gameRoot string) string {
	if rel, ok := toRelative(p, gameRoot); ok {
		return rel
	}
	return strings.ReplaceAll(p, "\\", "/")
}

// isDirectoryPath treats a relative path ending in "/" as a directory
// marker — the installer's file list can include directories it created,
// which the file-ownership invariants exempt from exclusive ownership.
func isDirectoryPath(relPath string) bool {
	return strings.HasSuffix(relPath, "/")
}

// toAbsolute joins gameRoot and a relative path for boundary conversions
// (e.g. checking deregister_install's "still exists on disk" predicate).
func toAbsolute(relPath, gameRoot string) string {
	gameRoot = strings.ReplaceAll(gameRoot, "\\", "/")
	gameRoot = strings.TrimSuffix(gameRoot, "/")
	return gameRoot + "/" + strings.TrimPrefix(relPath, "/")
}
