package sanitize

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const (
	// Mask replaces values redacted by Sanitize and SanitizeHeader.
	Mask = "****"

	// FieldMask replaces values of caller-configured fields in MaskFields.
	FieldMask = "***MASKED***"
)

// DefaultMaskFields is the field list used when an interception does not
// configure its own.
var DefaultMaskFields = []string{"password", "token", "secret", "pin", "cvv", "authorization"}

// sensitiveHeaders are masked wholesale by SanitizeHeader. Lower-cased.
var sensitiveHeaders = []string{"authorization", "x-api-key", "x-auth-token"}

// rule is a single rewrite applied by Sanitize.
//
// Patterns capture up to three groups: a prefix kept verbatim, the sensitive
// value, and a suffix kept verbatim. Rules without groups mask the whole match.
type rule struct {
	name  string
	regex *regexp.Regexp
}

// rules run in order. The set is immutable after init and safe for
// concurrent use.
var rules = []rule{
	{
		name:  "json_secret",
		regex: regexp.MustCompile(`(?i)("(?:password|secret|token|apiKey)"\s*:\s*")((?:[^"\\]|\\.)+)(")`),
	},
	{
		name:  "authorization_header",
		regex: regexp.MustCompile(`(?i)(Authorization\s*:\s*)([^\r\n]+)()`),
	},
	{
		name:  "dni",
		regex: regexp.MustCompile(`(?i)("dni"\s*:\s*")([0-9]{8})(")`),
	},
	{
		name:  "cuit",
		regex: regexp.MustCompile(`(?i)("cuit"\s*:\s*")([0-9]{2}-?[0-9]{8}-?[0-9])(")`),
	},
	{
		name:  "card_number",
		regex: regexp.MustCompile(`\b[0-9]{13,19}\b`),
	},
}

// Sanitize redacts sensitive data from free text or JSON-shaped strings.
// Blank input is returned unchanged.
//
// Rules are applied in order:
//  1. "password", "secret", "token" and "apiKey" JSON string values (key match is case-insensitive)
//  2. "Authorization: ..." header lines
//  3. 8-digit "dni" JSON values (key match is case-insensitive)
//  4. 11-digit "cuit" JSON values, with or without dashes (key match is case-insensitive)
//  5. Any bare 13-19 digit run
//
// Surrounding quotes, keys and braces are preserved. Values that are
// already a mask token are left alone, so Sanitize is idempotent.
func Sanitize(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	result := text
	for _, r := range rules {
		result = r.apply(result)
	}
	return result
}

func (r rule) apply(text string) string {
	if r.regex.NumSubexp() == 0 {
		return r.regex.ReplaceAllString(text, Mask)
	}

	return r.regex.ReplaceAllStringFunc(text, func(match string) string {
		groups := r.regex.FindStringSubmatch(match)
		if len(groups) < 4 {
			return match
		}
		if isMasked(strings.TrimSpace(groups[2])) {
			return match
		}
		return groups[1] + Mask + groups[3]
	})
}

func isMasked(value string) bool {
	return value == Mask || value == FieldMask
}

// SanitizeHeader masks the value of credential-carrying headers
// (Authorization, X-API-Key, X-Auth-Token; case-insensitive). Every other
// header, and blank values, pass through unchanged.
func SanitizeHeader(name, value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	if lo.Contains(sensitiveHeaders, strings.ToLower(strings.TrimSpace(name))) {
		return Mask
	}
	return value
}

// NormalizeFields trims, lower-cases and de-duplicates a field list,
// dropping empty entries.
func NormalizeFields(fields []string) []string {
	return lo.Uniq(lo.FilterMap(fields, func(field string, _ int) (string, bool) {
		field = strings.ToLower(strings.TrimSpace(field))
		return field, field != ""
	}))
}

// Payload prepares a serialized payload for storage: configured fields are
// masked, the result is sanitized, then truncated to maxSize.
func Payload(text string, maskFields []string, maxSize int) string {
	return Truncate(Sanitize(MaskFields(text, maskFields)), maxSize)
}
