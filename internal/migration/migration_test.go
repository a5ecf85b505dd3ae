package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/migration-ledger/internal/migration"
)

func TestComputeDigest(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		migration.ComputeDigest(nil),
	)

	d := migration.ComputeDigest([]byte("CREATE TABLE t (id int);"))
	assert.Regexp(t, `^[0-9a-f]{64}$`, d)
	assert.Equal(t, d, migration.ComputeDigest([]byte("CREATE TABLE t (id int);")))
	assert.NotEqual(t, d, migration.ComputeDigest([]byte("CREATE TABLE t (id int); ")))
}

func TestValidName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"20240601120000_init", true},
		{"1_a", true},
		{"20240601_add_users_table", true},
		{"20240601", false},
		{"20240601_", false},
		{"init_20240601", false},
		{"v1_init", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, migration.ValidName(tt.name))
		})
	}
}
