package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/your-org/faceid/internal/models"
)

const (
	MaxNameLength = 20
	phoneLength   = 11
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewGuestName returns a placeholder display name for a guest: "g", the last
// five base36 digits of the current unix millis and three random base36 characters.
func NewGuestName(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > 5 {
		ts = ts[len(ts)-5:]
	}

	var b strings.Builder
	b.WriteByte('g')
	b.WriteString(ts)
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		if err != nil {
			// crypto/rand does not fail on supported platforms
			n = big.NewInt(now.UnixNano() % int64(len(base36)))
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}

// NormalizeDisplayName trims surrounding space and applies NFC so that
// visually identical names compare equal.
func NormalizeDisplayName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func validateName(field, name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return fmt.Errorf("%w: %s must be 1-%d characters", models.ErrInvalidInput, field, MaxNameLength)
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) != phoneLength {
		return fmt.Errorf("%w: phone number must be %d digits", models.ErrInvalidInput, phoneLength)
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: phone number must be %d digits", models.ErrInvalidInput, phoneLength)
		}
	}
	return nil
}

func validateGender(g models.Gender) error {
	if !g.Valid() {
		return fmt.Errorf("%w: gender must be one of male, female, other", models.ErrInvalidInput)
	}
	return nil
}

// normalizeProfile cleans p in place and validates every supplied field.
func normalizeProfile(p *models.Profile) error {
	p.DisplayName = NormalizeDisplayName(p.DisplayName)
	p.RealName = NormalizeDisplayName(p.RealName)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)

	if p.DisplayName != "" {
		if err := validateName("display name", p.DisplayName); err != nil {
			return err
		}
	}
	if p.RealName != "" {
		if err := validateName("real name", p.RealName); err != nil {
			return err
		}
	}
	if p.PhoneNumber != "" {
		if err := validatePhone(p.PhoneNumber); err != nil {
			return err
		}
	}
	if p.Gender != "" {
		if err := validateGender(p.Gender); err != nil {
			return err
		}
	}
	return nil
}
