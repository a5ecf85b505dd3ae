package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-ledger/internal/database"
)

func TestQuoteIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain role", input: "nodejs", want: `"nodejs"`},
		{name: "underscore and digits", input: "app_user_2", want: `"app_user_2"`},
		{name: "mixed case folds to lower case", input: "AppUser", want: `"appuser"`},
		{name: "upper case folds to lower case", input: "NODEJS", want: `"nodejs"`},
		{name: "dollar allowed after first char", input: "a$b", want: `"a$b"`},
		{name: "empty", input: "", wantErr: true},
		{name: "leading digit", input: "1role", wantErr: true},
		{name: "injection attempt", input: "nodejs; DROP TABLE users", wantErr: true},
		{name: "quote character", input: `no"dejs`, wantErr: true},
		{name: "hyphen", input: "node-js", wantErr: true},
		{name: "too long", input: "a123456789012345678901234567890123456789012345678901234567890123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := database.QuoteIdentifier(tt.input)

			if tt.wantErr {
				require.ErrorIs(t, err, database.ErrInvalidIdentifier)
				assert.False(t, database.ValidIdentifier(tt.input))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
