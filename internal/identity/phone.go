package identity

import "strings"

// Phone numbers reach the service in whatever shape the input surface
// produced: the phone identity provider emits E.164, manual entry does not.
// The helpers here are purely syntactic; the only country-code awareness is
// the Egyptian local form (0XXXXXXXXX <-> +20XXXXXXXXX).

const egyptCountryCode = "20"

// NormalizePhone reduces a phone string to its digits. Used as the phone
// index document ID and for suffix comparison.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// PhoneVariants returns the deduplicated set of equality candidates for a raw
// phone string, in a stable order.
func PhoneVariants(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	candidates := []string{
		trimmed,
		stripChars(trimmed, " -()."),
		stripChars(trimmed, " "),
		stripChars(trimmed, " -"),
		plusNormalized(trimmed),
		plusStripped(trimmed),
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		variants = append(variants, c)
	}
	return variants
}

// SuffixDigits returns the last n digits of the normalized phone.
func SuffixDigits(raw string, n int) string {
	digits := NormalizePhone(raw)
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}

func stripChars(s, cutset string) string {
	var b strings.Builder
	for _, ch := range s {
		if !strings.ContainsRune(cutset, ch) {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// plusNormalized reconstructs the +20 international form from an Egyptian
// local number, or normalizes an existing + prefix.
func plusNormalized(raw string) string {
	digits := NormalizePhone(raw)
	if strings.HasPrefix(raw, "+") {
		return "+" + digits
	}
	if strings.HasPrefix(digits, "0") && len(digits) == 11 {
		return "+" + egyptCountryCode + strings.TrimPrefix(digits, "0")
	}
	return ""
}

// plusStripped reconstructs the Egyptian local form from a +20 number, or
// drops a + prefix.
func plusStripped(raw string) string {
	digits := NormalizePhone(raw)
	if strings.HasPrefix(digits, egyptCountryCode) && len(digits) == len(egyptCountryCode)+10 {
		return "0" + strings.TrimPrefix(digits, egyptCountryCode)
	}
	if strings.HasPrefix(raw, "+") {
		return digits
	}
	return ""
}
