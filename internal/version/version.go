package version

import (
	"runtime/debug"
	"strings"
	"sync"
)

const (
	// name is the identifier reported in the Server header and by the CLI.
	name = "jsonlkit"
	// defaultVersion applies when neither ldflags nor build info provide one.
	defaultVersion = "dev"
)

// Version reports the build version. It is overridden via -ldflags.
var Version = defaultVersion

var (
	mu       sync.Mutex
	resolved string
)

// Identifier returns the formatted name/version string.
func Identifier() string {
	return name + "/" + Current()
}

// Current returns the resolved version string.
func Current() string {
	mu.Lock()
	defer mu.Unlock()
	if resolved != "" {
		return resolved
	}
	candidate := strings.TrimSpace(Version)
	if candidate == "" || candidate == defaultVersion {
		candidate = fromBuildInfo()
	}
	resolved = candidate
	return resolved
}

// Override substitutes the version string and clears cached values. Intended for tests.
func Override(v string) {
	mu.Lock()
	defer mu.Unlock()
	Version = v
	resolved = ""
}

func fromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return defaultVersion
	}
	v := strings.TrimSpace(info.Main.Version)
	if v == "" || v == "(devel)" {
		return defaultVersion
	}
	return v
}
