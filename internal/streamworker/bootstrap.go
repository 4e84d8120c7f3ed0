package streamworker

import "strings"

// splitBootstrap turns a validated comma-separated bootstrap-servers string
// into the list kafka-go's Dialer/Transport-based addressing expects.
func splitBootstrap(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
