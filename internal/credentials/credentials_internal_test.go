package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dsn  string
		want map[string]string
	}{
		{
			name: "plain pairs",
			dsn:  "host=localhost port=5432 dbname=app",
			want: map[string]string{"host": "localhost", "port": "5432", "dbname": "app"},
		},
		{
			name: "spaces around equals",
			dsn:  "  host = db   password =pw user= app ",
			want: map[string]string{"host": "db", "password": "pw", "user": "app"},
		},
		{
			name: "quoted value with spaces",
			dsn:  "password='s3cret word' user=app",
			want: map[string]string{"password": "s3cret word", "user": "app"},
		},
		{
			name: "escaped quote and backslash inside quotes",
			dsn:  `password='it\'s a \\ path' user=app`,
			want: map[string]string{"password": `it's a \ path`, "user": "app"},
		},
		{
			name: "escaped space outside quotes",
			dsn:  `password=two\ words`,
			want: map[string]string{"password": "two words"},
		},
		{
			name: "empty quoted value",
			dsn:  "password='' user=app",
			want: map[string]string{"password": "", "user": "app"},
		},
		{
			name: "unterminated quote takes the rest",
			dsn:  "password='open ended",
			want: map[string]string{"password": "open ended"},
		},
		{
			name: "empty string",
			dsn:  "",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, keywordValue(tt.dsn))
		})
	}
}
