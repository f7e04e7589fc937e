// Package sanitize redacts sensitive data from captured payloads and log
// lines, and bounds their size.
//
// Three independent operations are provided:
//
//   - Sanitize applies a fixed, ordered rule set (secret JSON keys,
//     Authorization lines, national and tax ids, card-shaped digit runs)
//   - SanitizeHeader masks credential-carrying headers wholesale
//   - MaskFields masks the values of caller-chosen JSON fields
//
// Truncate is a separate, later step. Payload chains all of them in the
// order the capture pipeline uses.
//
// All functions are pure and safe for concurrent use.
package sanitize
