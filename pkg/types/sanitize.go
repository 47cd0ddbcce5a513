package types

import (
	"regexp"

	"github.com/sirupsen/logrus"
)

const redacted = "[PRIVATE_KEY]"

// privateKeyPath matches paths that look like a private key: MOK.key,
// kernel_module_signing.pem, any *.key path, or a gpg secret-key path.
// Other *.pem paths are not matched.
var privateKeyPath = regexp.MustCompile(`\S*(MOK\.key|kernel_module_signing\.pem|\.key|gpg[-_]?secret\S*)\b`)

// SanitizeHook is a logrus hook that redacts private-key paths from every
// field and the formatted message before a log entry reaches its output.
// Installed by default in NewLogger so no call site has to remember to
// scrub paths itself.
type SanitizeHook struct{}

func (h *SanitizeHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *SanitizeHook) Fire(entry *logrus.Entry) error {
	entry.Message = privateKeyPath.ReplaceAllString(entry.Message, redacted)
	for k, v := range entry.Data {
		if s, ok := v.(string); ok {
			entry.Data[k] = privateKeyPath.ReplaceAllString(s, redacted)
		}
	}
	return nil
}
