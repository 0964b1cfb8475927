package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleMigration = `-- +migrate Up
CREATE TABLE payment_sessions (
    id UUID PRIMARY KEY
);

-- +migrate Down
DROP TABLE payment_sessions;
`

func TestExtractMigrationPart(t *testing.T) {
	up := extractMigrationPart(sampleMigration, "Up")
	assert.Contains(t, up, "CREATE TABLE payment_sessions")
	assert.NotContains(t, up, "DROP TABLE")

	down := extractMigrationPart(sampleMigration, "Down")
	assert.Contains(t, down, "DROP TABLE payment_sessions")
	assert.NotContains(t, down, "CREATE TABLE")
}

func TestExtractMigrationPartMissingSection(t *testing.T) {
	got := extractMigrationPart("-- +migrate Up\nSELECT 1;\n", "Down")
	assert.Equal(t, "", strings.TrimSpace(got))
}
