package rabbitmq

import (
	"errors"
	"net/url"
	"strings"
)

// sanitizeBrokerURL normalizes a configured broker URL shared by the producer
// and consumer: surrounding whitespace and quotes are stripped, stray
// characters before the scheme are dropped, and a bare authority gets the
// default "/" vhost appended. An explicit vhost path is left untouched.
func sanitizeBrokerURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	if parsed.Path == "" {
		clean += "/"
	}
	return clean, nil
}
