package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// MaskFields replaces the value of every "field": value pair whose key is in
// fields (case-insensitive) with FieldMask, keeping JSON delimiters intact.
//
// Valid JSON is rewritten token by token, so nested objects, arrays and
// escaped strings are handled and key order is kept; object or array values
// of a masked key are replaced wholesale. Anything else falls back to a
// regular expression covering quoted-string and bare-literal values.
//
// Masking an already-masked document returns it unchanged.
func MaskFields(text string, fields []string) string {
	fields = NormalizeFields(fields)
	if len(fields) == 0 || strings.TrimSpace(text) == "" {
		return text
	}

	if json.Valid([]byte(text)) {
		set := make(map[string]struct{}, len(fields))
		for _, f := range fields {
			set[f] = struct{}{}
		}
		masked, err := maskJSON(text, set)
		if err == nil {
			return masked
		}
	}
	return maskRegex(text, fields)
}

// frame tracks an open JSON container while rewriting.
type frame struct {
	object bool
	count  int // keys and values emitted so far
}

func (f *frame) expectingKey() bool {
	return f.object && f.count%2 == 0
}

func maskJSON(text string, fields map[string]struct{}) (string, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var out strings.Builder
	var stack []*frame
	skipDepth := 0
	maskNext := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		// Swallow the body of a masked container value.
		if skipDepth > 0 {
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					skipDepth++
				case '}', ']':
					skipDepth--
				}
			}
			continue
		}

		var top *frame
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}

		closing := tok == json.Delim('}') || tok == json.Delim(']')
		if top != nil && !closing {
			switch {
			case top.object && top.count%2 == 1:
				out.WriteByte(':')
			case top.count > 0:
				out.WriteByte(',')
			}
		}

		if maskNext {
			maskNext = false
			writeJSONString(&out, FieldMask)
			top.count++
			if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
				skipDepth = 1
			}
			continue
		}

		switch v := tok.(type) {
		case json.Delim:
			out.WriteRune(rune(v))
			if v == '{' || v == '[' {
				stack = append(stack, &frame{object: v == '{'})
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				stack[len(stack)-1].count++
			}
			continue
		case string:
			if top != nil && top.expectingKey() {
				if _, ok := fields[strings.ToLower(v)]; ok {
					maskNext = true
				}
			}
			writeJSONString(&out, v)
		case json.Number:
			out.WriteString(v.String())
		case bool:
			if v {
				out.WriteString("true")
			} else {
				out.WriteString("false")
			}
		case nil:
			out.WriteString("null")
		}

		if top != nil {
			top.count++
		}
	}

	return out.String(), nil
}

// writeJSONString writes s as a quoted JSON string without HTML escaping,
// matching how captured payloads are serialized.
func writeJSONString(out *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	out.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

func maskRegex(text string, fields []string) string {
	quoted := lo.Map(fields, func(f string, _ int) string {
		return regexp.QuoteMeta(f)
	})
	pattern := regexp.MustCompile(`(?i)"(` + strings.Join(quoted, "|") + `)"\s*:\s*(?:"(?:[^"\\]|\\.)*"|[^,}\]\s]+)`)
	return pattern.ReplaceAllString(text, `"${1}":"`+FieldMask+`"`)
}
