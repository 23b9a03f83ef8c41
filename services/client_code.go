package services

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"case_track_app_go/models"
)

const (
	// clientCodeFallbackPrefix is used when the client name has no letters
	clientCodeFallbackPrefix = "CLT"
	clientCodeSuffixLength   = 6
	// Unambiguous alphanumerics: no I, L, O, 0 or 1, since clients read
	// these codes over the phone.
	clientCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

var nonLetterPattern = regexp.MustCompile(`[^A-Za-z]`)

// GenerateClientCode produces a human-readable access code of the form
// PRE-XXXXXX: the prefix is the first three letters of the client name
// uppercased (padded with X, or CLT when the name has no letters), the
// suffix is drawn at random.
func GenerateClientCode(name string) string {
	letters := strings.ToUpper(nonLetterPattern.ReplaceAllString(name, ""))
	prefix := clientCodeFallbackPrefix
	if letters != "" {
		if len(letters) > 3 {
			letters = letters[:3]
		}
		prefix = letters + strings.Repeat("X", 3-len(letters))
	}
	return prefix + "-" + randomCodeSuffix()
}

func randomCodeSuffix() string {
	buf := make([]byte, clientCodeSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = clientCodeAlphabet[int(b)%len(clientCodeAlphabet)]
	}
	return string(buf)
}

// EnsureUniqueClientCode generates a code and redraws the suffix until no
// persisted case carries it. The suffix space is wide enough that the loop
// terminates on the first draw in practice; a collision redraws rather than
// failing. Safe under concurrent generation: each caller only reads the
// existing code set and persists its own row.
func EnsureUniqueClientCode(db *gorm.DB, name string) (string, error) {
	for {
		code := GenerateClientCode(name)

		var count int64
		if err := db.Model(&models.Case{}).Where("client_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check client code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
		// Collision detected, redraw
	}
}

// ReuseOrGenerateClientCode returns the code already assigned to the most
// recently updated case for the same client email, minting a new one only
// for clients the store has never seen. Codes are idempotent per client.
func ReuseOrGenerateClientCode(db *gorm.DB, clientEmail, clientName string) (string, error) {
	var existing models.Case
	err := db.Where("lower(client_email) = ? AND client_code <> ''", strings.ToLower(strings.TrimSpace(clientEmail))).
		Order("last_update DESC").
		First(&existing).Error
	if err == nil {
		return existing.ClientCode, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", fmt.Errorf("failed to look up existing client code: %w", err)
	}
	return EnsureUniqueClientCode(db, clientName)
}
