// Package misc holds small process-level helpers shared by config and cmd.
package misc

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetDuration reads key as whole seconds or Go duration syntax.
// Non-positive values clamp to 0; unparsable values yield def.
func GetDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return max(time.Duration(n)*time.Second, 0)
	}
	if d, err := time.ParseDuration(v); err == nil {
		return max(d, 0)
	}
	return def
}

func GetBool(key string, def bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}
