package util

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"regexp"
	"strings"

	"github.com/aws/smithy-go/logging"
	"github.com/rs/zerolog"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9-]+`)

func DeSlasher(str string) string {
	dashes := strings.Replace(str, "/", "-", -1)
	dashes = strings.TrimSuffix(dashes, "-")
	dashes = strings.TrimPrefix(dashes, "-")
	return dashes
}

func ShaLike(str string) bool {
	regexExp := regexp.MustCompile(`^[a-f0-9]{40}$`)
	return regexExp.MatchString(str)
}

// Digest is a stable lowercase hex digest of the joined parts.
func Digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "/")))
	return hex.EncodeToString(sum[:])
}

// PhysicalName mirrors the provisioning engine's generated names: <stack>-<id>-<suffix>,
// trimmed from the middle so the suffix always survives the length limit.
func PhysicalName(stack, id, suffix string, limit int, lower bool) string {
	head := DeSlasher(nonAlnum.ReplaceAllString(stack+"-"+id, "-"))
	if lower {
		head = strings.ToLower(head)
		suffix = strings.ToLower(suffix)
	}

	if room := limit - len(suffix) - 1; len(head) > room {
		head = strings.TrimRight(head[:room], "-")
	}

	return head + "-" + suffix
}

func RoleNameFromArn(arn string) string {
	parts := strings.Split(arn, ":role/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func RoleArnFromName(partition, accountId, name string) string {
	return "arn:" + partition + ":iam::" + accountId + ":role/" + name
}

func ManagedPolicyArn(partition, name string) string {
	return "arn:" + partition + ":iam::aws:policy/" + name
}

// For view layer only
func UnsafeSlice(s string, start, end int) string {
	if s == "" {
		return ""
	}
	if end > len(s) {
		end = len(s)
	}
	if start > len(s) {
		return ""
	}
	return s[start:end]
}

func OtelConfigPresent() bool {
	_, present := os.LookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT")
	return present
}

func SetLogLevel() {
	if level, exists := os.LookupEnv("LOG_LEVEL"); exists {
		level = strings.ToLower(level)
		switch level {
		case "panic":
			zerolog.SetGlobalLevel(zerolog.PanicLevel)
		case "fatal":
			zerolog.SetGlobalLevel(zerolog.FatalLevel)
		case "error":
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		case "warn":
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case "info":
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case "debug":
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case "trace":
			zerolog.SetGlobalLevel(zerolog.TraceLevel)
		default:
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
		return
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// Wraps a zerolog.Logger so the AWS SDK can report retries through it.

type RetryLogger struct {
	Log *zerolog.Logger
}

func (l *RetryLogger) Logf(classification logging.Classification, format string, v ...interface{}) {
	switch classification {
	case logging.Warn:
		l.Log.Warn().Msgf(format, v...)
	case logging.Debug:
		if strings.Contains(format, "retrying request") {
			l.Log.Info().Msgf(format, v...)
		} else {
			l.Log.Debug().Msgf(format, v...)
		}
	default:
		l.Log.Error().Msgf(format, v...)
	}
}
