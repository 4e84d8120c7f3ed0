// Package validation implements C11: the topic-directive checks the engine
// requires pass before any child is spawned (uniqueness, bootstrap-server
// format). Modeled on the teacher's domain/transform.go regex-driven
// parsing style: small
// pure functions, package-level compiled regexes, and accumulate-then-report
// rather than fail-fast, so a caller sees every problem in one pass.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

var hostnameLabelRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)

// Errors is an accumulated list of validation failures. Callers must not
// proceed on any error.
type Errors []error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any validation failures were accumulated.
func (e Errors) HasErrors() bool { return len(e) > 0 }

// ValidateTopicDirectives runs both C11 rules against a directive list and
// returns every accumulated failure.
func ValidateTopicDirectives(directives []domain.TopicDirective) Errors {
	var errs Errors
	errs = append(errs, validateUniqueness(directives)...)
	errs = append(errs, validateBootstrapServers(directives)...)
	return errs
}

// validateUniqueness checks that topic names are pairwise distinct. All
// duplicates are reported together, each naming its occurrence count.
func validateUniqueness(directives []domain.TopicDirective) Errors {
	counts := make(map[string]int, len(directives))
	order := make([]string, 0, len(directives))
	for _, d := range directives {
		if counts[d.Topic] == 0 {
			order = append(order, d.Topic)
		}
		counts[d.Topic]++
	}

	var errs Errors
	for _, topic := range order {
		if n := counts[topic]; n > 1 {
			errs = append(errs, fmt.Errorf("%w: Topic '%s' appears %d times", domain.ErrDuplicateTopic, topic, n))
		}
	}
	return errs
}

// validateBootstrapServers checks the bootstrap-servers format rule for
// every directive that sets one.
func validateBootstrapServers(directives []domain.TopicDirective) Errors {
	var errs Errors
	for _, d := range directives {
		if err := ValidateBootstrapServers(d.BootstrapServers); err != nil {
			errs = append(errs, fmt.Errorf("topic %q: %w", d.Topic, err))
		}
	}
	return errs
}

// ValidateBootstrapServers checks one bootstrap-servers override. nil means
// "no override" and is valid; a non-nil pointer must dereference to a
// comma-separated list of host:port entries — including, per spec §4.11,
// that an explicit empty string is itself invalid rather than equivalent
// to omitting the key.
func ValidateBootstrapServers(value *string) error {
	if value == nil {
		return nil
	}
	if *value == "" {
		return domain.ErrEmptyBootstrapServers
	}

	entries := strings.Split(*value, ",")
	var trimmed []string
	for _, e := range entries {
		t := strings.TrimSpace(e)
		if t != "" {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) == 0 {
		return domain.ErrEmptyBootstrapServers
	}

	for _, entry := range trimmed {
		if err := validateHostPort(entry); err != nil {
			return fmt.Errorf("%w: Expected format: host:port (%s)", domain.ErrInvalidBootstrapServers, err)
		}
	}
	return nil
}

func validateHostPort(entry string) error {
	idx := strings.LastIndex(entry, ":")
	if idx <= 0 || idx == len(entry)-1 {
		return fmt.Errorf("%q is not host:port", entry)
	}
	host, portStr := entry[:idx], entry[idx+1:]

	if !validHost(host) {
		return fmt.Errorf("%q is not a valid host", host)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%q is not a valid port", portStr)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range [1, 65535]", port)
	}
	return nil
}

func validHost(host string) bool {
	if host == "" {
		return false
	}
	if strings.HasPrefix(host, "-") || strings.HasSuffix(host, "-") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if !hostnameLabelRe.MatchString(label) {
			return false
		}
	}
	return true
}
