package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadDotEnv reads KEY=value lines from path. A missing file yields an empty
// map. Values may be double-quoted Go strings; single quotes are rejected.
func LoadDotEnv(path string) (map[string]string, error) {
	env := make(map[string]string)
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the data-dir flag
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}
	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			return nil, fmt.Errorf("single quotes are not supported in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}
