package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/promstore/internal/misc"
)

// fromEnvOrFlag returns the trimmed environment value when set, otherwise the flag, otherwise def.
func fromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// fromEnvOrFlagBool lets a set environment variable override the flag either way.
func fromEnvOrFlagBool(envKey string, flagVal, def bool) bool {
	if strings.TrimSpace(os.Getenv(envKey)) != "" {
		return misc.GetBool(envKey, def)
	}
	return flagVal || def
}

// fromEnvOrFlagSeconds reads a duration from env (seconds or Go syntax), then
// from a seconds flag unless it equals sentinel, then def.
func fromEnvOrFlagSeconds(envKey string, flagSeconds, sentinel int, def time.Duration) time.Duration {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		if n, err := strconv.Atoi(ev); err == nil {
			return max(time.Duration(n)*time.Second, 0)
		}
		return misc.GetDuration(envKey, def)
	}
	if flagSeconds != sentinel {
		return max(time.Duration(flagSeconds)*time.Second, 0)
	}
	return def
}
