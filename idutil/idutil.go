// Package idutil generates and validates UUIDs and prefixed domain ids such as
// USR-1a2b3c4d or TXN-20250115143052-a1b2c3.
package idutil

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// Domain prefixes.
const (
	PrefixUser        = "USR"
	PrefixAccount     = "ACC"
	PrefixTransaction = "TXN"
	PrefixTransfer    = "TRF"
	PrefixCard        = "CRD"
	PrefixLedger      = "LDG"
	PrefixEvent       = "EVT"
)

const (
	defaultDomainLen = 8
	timestampLayout  = "20060102150405"
	timestampHexLen  = 6
)

var (
	standardRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	compactRe  = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	prefixRe   = regexp.MustCompile(`^[A-Z]+$`)
	hexRe      = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	stampedRe  = regexp.MustCompile(`^\d{14}-[0-9a-fA-F]+$`)
)

// New returns a random UUID in the 36-character form.
func New() string { return uuid.NewString() }

// NewCompact returns a random UUID without hyphens.
func NewCompact() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

// IsValid reports whether s is a UUID in the 36-character hyphenated form.
func IsValid(s string) bool { return standardRe.MatchString(s) }

// IsValidAnyFormat accepts the hyphenated and the 32-character compact forms.
func IsValidAnyFormat(s string) bool { return standardRe.MatchString(s) || compactRe.MatchString(s) }

// Parse parses a hyphenated UUID.
func Parse(s string) (uuid.UUID, error) {
	if !IsValid(s) {
		return uuid.Nil, fmt.Errorf("invalid uuid %q: %w", s, berr.ErrInvalidArgument)
	}

	return uuid.Parse(s)
}

// ToStandard inserts hyphens into a compact UUID.
func ToStandard(compact string) (string, error) {
	if !compactRe.MatchString(compact) {
		return "", fmt.Errorf("invalid compact uuid %q: %w", compact, berr.ErrInvalidArgument)
	}

	return compact[0:8] + "-" + compact[8:12] + "-" + compact[12:16] + "-" + compact[16:20] + "-" + compact[20:32], nil
}

// ToCompact strips hyphens from a hyphenated UUID.
func ToCompact(s string) (string, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("invalid uuid %q: %w", s, berr.ErrInvalidArgument)
	}

	return strings.ReplaceAll(s, "-", ""), nil
}

// Generator builds domain ids. Timestamped ids read its clock.
type Generator struct {
	clock clockwork.Clock
}

// NewGenerator returns a Generator on clock; nil means the real clock.
func NewGenerator(clock clockwork.Clock) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Generator{clock: clock}
}

var std = NewGenerator(nil)

// DomainID returns PREFIX-xxxxxxxx with 8 random hex characters.
func (g *Generator) DomainID(prefix string) (string, error) {
	return g.DomainIDLen(prefix, defaultDomainLen)
}

// DomainIDLen returns PREFIX- followed by length random hex characters, 4 to 32.
func (g *Generator) DomainIDLen(prefix string, length int) (string, error) {
	p, err := normPrefix(prefix)
	if err != nil {
		return "", err
	}

	if length < 4 || length > 32 {
		return "", fmt.Errorf("domain id length %d outside 4..32: %w", length, berr.ErrInvalidArgument)
	}

	return p + "-" + NewCompact()[:length], nil
}

// TimestampID returns PREFIX-yyyyMMddHHmmss-xxxxxx using the generator's clock in UTC.
func (g *Generator) TimestampID(prefix string) (string, error) {
	p, err := normPrefix(prefix)
	if err != nil {
		return "", err
	}

	return p + "-" + g.clock.Now().UTC().Format(timestampLayout) + "-" + NewCompact()[:timestampHexLen], nil
}

// DomainID is Generator.DomainID on the real clock.
func DomainID(prefix string) (string, error) { return std.DomainID(prefix) }

// DomainIDLen is Generator.DomainIDLen on the real clock.
func DomainIDLen(prefix string, length int) (string, error) { return std.DomainIDLen(prefix, length) }

// TimestampID is Generator.TimestampID on the real clock.
func TimestampID(prefix string) (string, error) { return std.TimestampID(prefix) }

// ExtractPrefix returns the part of a domain id before the first hyphen.
func ExtractPrefix(id string) (string, error) {
	p, _, ok := strings.Cut(id, "-")
	if !ok {
		return "", fmt.Errorf("invalid domain id %q: %w", id, berr.ErrInvalidArgument)
	}

	return p, nil
}

// IsValidDomainID reports whether id is PREFIX-hex or PREFIX-yyyyMMddHHmmss-hex with an
// uppercase prefix. A non-empty expectedPrefix must match case-insensitively.
func IsValidDomainID(id, expectedPrefix string) bool {
	prefix, rest, ok := strings.Cut(id, "-")
	if !ok {
		return false
	}

	if expectedPrefix != "" && !strings.EqualFold(prefix, expectedPrefix) {
		return false
	}

	if !prefixRe.MatchString(prefix) {
		return false
	}

	return hexRe.MatchString(rest) || stampedRe.MatchString(rest)
}

func normPrefix(prefix string) (string, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return "", fmt.Errorf("domain id prefix required: %w", berr.ErrInvalidArgument)
	}

	return strings.ToUpper(p), nil
}

func must(id string, err error) string {
	if err != nil {
		panic(err)
	}

	return id
}

// Shorthands for the bank domain prefixes.

func UserID() string        { return must(DomainID(PrefixUser)) }
func AccountID() string     { return must(DomainID(PrefixAccount)) }
func TransactionID() string { return must(TimestampID(PrefixTransaction)) }
func TransferID() string    { return must(TimestampID(PrefixTransfer)) }
func CardID() string        { return must(DomainID(PrefixCard)) }
func LedgerID() string      { return must(TimestampID(PrefixLedger)) }
func EventID() string       { return must(DomainID(PrefixEvent)) }
