package raster

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds the process-wide tunables. It is meant to be set once at
// startup, before any handle is created; reads are cheap and safe from
// multiple goroutines. The zero value disables the decode cache and leak
// tracking.
type Config struct {
	// LeakTracking records the creation site of every live handle so
	// ReportLeaks can name handles that were never released.
	LeakTracking bool

	// MaxCacheItems bounds the decode cache entry count. Zero disables
	// caching entirely.
	MaxCacheItems int

	// MaxCacheMemoryBytes bounds the decoded bytes held by the cache.
	// Zero means no memory ceiling beyond MaxCacheItems.
	MaxCacheMemoryBytes int64
}

var (
	cfgMu sync.RWMutex
	cfg   Config
)

// Configure installs the process-wide configuration.
func Configure(c Config) {
	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
}

// CurrentConfig returns the active configuration.
func CurrentConfig() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// ConfigFromEnv builds a Config from the environment, loading a .env file
// first when one is present. Recognized variables:
//
//	RASTERLY_LEAK_TRACKING   bool
//	RASTERLY_MAX_CACHE_ITEMS int
//	RASTERLY_MAX_CACHE_MEM   int64 (bytes)
//
// Unset or malformed values fall back to the zero value.
func ConfigFromEnv() Config {
	// Best effort, same as the usual godotenv.Load() pattern: a missing
	// .env file is not an error.
	_ = godotenv.Load()

	var c Config
	if v, err := strconv.ParseBool(os.Getenv("RASTERLY_LEAK_TRACKING")); err == nil {
		c.LeakTracking = v
	}
	if v, err := strconv.Atoi(os.Getenv("RASTERLY_MAX_CACHE_ITEMS")); err == nil && v >= 0 {
		c.MaxCacheItems = v
	}
	if v, err := strconv.ParseInt(os.Getenv("RASTERLY_MAX_CACHE_MEM"), 10, 64); err == nil && v >= 0 {
		c.MaxCacheMemoryBytes = v
	}
	return c
}

// Live-handle accounting. Every constructor registers the handle, Release
// unregisters it exactly once (Release is idempotent).
var (
	trackMu sync.Mutex
	live    int
	origins map[*Image]string
)

func trackOpen(m *Image) {
	trackMu.Lock()
	defer trackMu.Unlock()
	live++
	if !CurrentConfig().LeakTracking {
		return
	}
	if origins == nil {
		origins = make(map[*Image]string)
	}
	origins[m] = callerOutsidePackage()
}

// callerOutsidePackage walks up the stack past this package's constructor
// frames to the user call site.
func callerOutsidePackage() string {
	var pcs [8]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.Contains(f.Function, "/pkg/raster.") || strings.HasSuffix(f.File, "_test.go") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return "unknown"
		}
	}
}

func trackRelease(m *Image) {
	trackMu.Lock()
	defer trackMu.Unlock()
	live--
	delete(origins, m)
}

// LiveHandles returns the number of handles that have been created but not
// yet released.
func LiveHandles() int {
	trackMu.Lock()
	defer trackMu.Unlock()
	return live
}

// ReportLeaks writes one line per live handle to w and returns the live
// count. Creation sites are included when leak tracking is enabled.
func ReportLeaks(w io.Writer) int {
	trackMu.Lock()
	defer trackMu.Unlock()
	for _, site := range origins {
		fmt.Fprintf(w, "leaked image handle opened at %s\n", site)
	}
	if live > 0 && len(origins) == 0 {
		fmt.Fprintf(w, "%d image handle(s) not released (enable LeakTracking for creation sites)\n", live)
	}
	return live
}
