package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keydash/dashboard/internal/procedure"
)

func TestNormalizeIPWhitelist(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"nil clears", nil, nil},
		{"empty clears", strPtr(""), nil},
		{"single", strPtr("1.1.1.1"), strPtr("1.1.1.1")},
		{"comma and spaces", strPtr("1.1.1.1, 2.2.2.2"), strPtr("1.1.1.1,2.2.2.2")},
		{"newlines", strPtr("1.1.1.1\n2.2.2.2\n ::1 "), strPtr("1.1.1.1,2.2.2.2,::1")},
		{"ipv6", strPtr("2001:db8::1"), strPtr("2001:db8::1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeIPWhitelist(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIPWhitelist_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantPath  string
		wantToken string
	}{
		{"not an ip", "not-an-ip", "ipWhitelist.0", `"not-an-ip"`},
		{"second entry", "1.1.1.1,999.1.1.1", "ipWhitelist.1", `"999.1.1.1"`},
		{"trailing comma", "1.1.1.1,", "ipWhitelist.1", `""`},
		{"cidr", "10.0.0.0/8", "ipWhitelist.0", `"10.0.0.0/8"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeIPWhitelist(strPtr(tt.in))
			assert.Nil(t, got)

			var pe *procedure.Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, procedure.CodeBadRequest, pe.Code)
			require.Len(t, pe.Issues, 1)
			assert.Equal(t, tt.wantPath, pe.Issues[0].Path)
			assert.Contains(t, pe.Issues[0].Message, tt.wantToken)
		})
	}
}
