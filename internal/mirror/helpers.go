package mirror

import (
	"fmt"
	"strings"
)

func formatURL(template string, arguments ...any) string {
	return fmt.Sprintf(template, arguments...)
}

func firstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); len(trimmed) > 0 {
			return trimmed
		}
	}
	return ""
}

func remoteRepository(name string, pushURL string, created bool) (RemoteRepository, error) {
	trimmedURL := strings.TrimSpace(pushURL)
	if len(trimmedURL) == 0 {
		return RemoteRepository{Name: name, Created: created}, ErrPushURLMissing
	}
	return RemoteRepository{Name: name, PushURL: trimmedURL, Created: created}, nil
}
