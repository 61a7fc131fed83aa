package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/models"
)

func TestNewGuestName(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	name := NewGuestName(now)
	assert.Regexp(t, `^g[0-9a-z]{8}$`, name)
	assert.LessOrEqual(t, len(name), MaxNameLength)

	other := NewGuestName(now)
	assert.Equal(t, name[:6], other[:6], "time part is stable for the same instant")
}

func TestNormalizeDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "alice", want: "alice"},
		{in: "  alice\t", want: "alice"},
		{in: "e\u0301", want: "\u00e9"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDisplayName(tt.in))
		})
	}
}

func TestNormalizeProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile models.Profile
		wantErr bool
	}{
		{name: "empty profile", profile: models.Profile{}},
		{name: "full profile", profile: models.Profile{
			DisplayName: "alice",
			RealName:    "Alice",
			PhoneNumber: "13800138000",
			Gender:      models.GenderFemale,
		}},
		{name: "twenty runes", profile: models.Profile{DisplayName: "一二三四五六七八九十一二三四五六七八九十"}},
		{name: "name too long", profile: models.Profile{DisplayName: "abcdefghijklmnopqrstu"}, wantErr: true},
		{name: "phone with letters", profile: models.Profile{PhoneNumber: "1380013800a"}, wantErr: true},
		{name: "short phone", profile: models.Profile{PhoneNumber: "138"}, wantErr: true},
		{name: "unknown gender", profile: models.Profile{Gender: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			err := normalizeProfile(&p)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
		})
	}
}
