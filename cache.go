package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/xyproto/env/v2"
)

const MODELS_DIR = "models"
const GRAPH_FILE = "graph.json"
const HASH_FILE = ".hash"

// defaultCacheDir gets env variable BUGCACHE; if it is not set, picks the
// platform cache location.
func defaultCacheDir() string {
	if dir := env.Str("BUGCACHE"); dir != "" {
		return dir
	}

	home := env.HomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := env.Str("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "bugc")
		}
		return filepath.Join(home, "AppData", "Local", "bugc")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "bugc")
	default:
		if xdg := env.Str("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "bugc")
		}
		return filepath.Join(home, ".cache", "bugc")
	}
}

// isHashDir returns true if name is an 8-char hex string (matches shortHash format).
func isHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

// modelHash hashes the input document. The short hash names the cache
// directory; the full hash guards against collisions.
func modelHash(src []byte) (shortHash, fullHash string) {
	sum := sha256.Sum256(src)
	fullHash = hex.EncodeToString(sum[:])
	return fullHash[:8], fullHash
}

// cleanupOldModels removes cached graphs beyond the keep most recent ones,
// and only if older than maxAgeSecs.
func cleanupOldModels(modelsDir string, keep int, maxAgeSecs int64) {
	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		return
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	dirs := []dirInfo{}
	for _, e := range entries {
		if !e.IsDir() || !isHashDir(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{name: e.Name(), mtime: info.ModTime().Unix()})
	}
	if len(dirs) <= keep {
		return
	}

	cutoff := time.Now().Unix() - maxAgeSecs
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(modelsDir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to remove old cached graph %s: %v\n", path, err)
			}
		}
	}
}

// cachedCompile compiles the document, reusing a previously compiled graph
// when the content hash matches. A file lock ensures concurrent processes
// see either a fully written cache entry or build it themselves.
func cachedCompile(cacheDir string, src []byte) ([]byte, error) {
	modelsDir := filepath.Join(cacheDir, MODELS_DIR)
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	// Lock the entire operation
	lock := flock.New(filepath.Join(modelsDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	defer lock.Unlock()

	shortHash, fullHash := modelHash(src)
	dir := filepath.Join(modelsDir, shortHash)
	hashFile := filepath.Join(dir, HASH_FILE)
	graphFile := filepath.Join(dir, GRAPH_FILE)

	if stored, err := os.ReadFile(hashFile); err == nil && string(stored) == fullHash {
		if out, err := os.ReadFile(graphFile); err == nil {
			fmt.Fprintf(os.Stderr, "Using cached graph: %s\n", dir)
			return out, nil
		}
	}

	// Cleanup old entries (keep 5 most recent, only delete if older than 1 week)
	cleanupOldModels(modelsDir, 5, 7*24*60*60)

	out, err := compileModel(src)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache entry: %w", err)
	}
	if err := os.WriteFile(graphFile, out, 0644); err != nil {
		return nil, fmt.Errorf("write cached graph: %w", err)
	}
	// Store the full hash last; it acts as the completion marker.
	if err := os.WriteFile(hashFile, []byte(fullHash), 0644); err != nil {
		return nil, fmt.Errorf("write hash file: %w", err)
	}
	return out, nil
}
