package domain

import "strings"

// NormalizePhone strips everything but digits. Length validation belongs to
// the registration surface; the core only normalizes.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IdentityKey derives the allocation identity for a participant. Two
// registrations with the same normalized name and phone share question
// history even when they produce distinct participant records.
func IdentityKey(name, phone string) string {
	return strings.ToLower(strings.TrimSpace(name)) + ":" + NormalizePhone(phone)
}
