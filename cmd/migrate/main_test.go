package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/riskdesk-demo/migrations"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  []int
	version uint
}

func (f *fakeMigrator) Up() error                    { return f.upErr }
func (f *fakeMigrator) Steps(n int) error            { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Force(v int) error            { f.forced = append(f.forced, v); return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, nil }

func TestApplyUpDefault(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange, version: 1}
	require.NoError(t, apply(m, nil, logging.New("error")))
}

func TestApplyUpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("syntax error")}
	require.Error(t, apply(m, []string{"up"}, logging.New("error")))
}

func TestApplyDownAndForce(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, apply(m, []string{"down"}, logging.New("error")))
	assert.Equal(t, []int{-1}, m.steps)

	require.NoError(t, apply(m, []string{"force", "1"}, logging.New("error")))
	assert.Equal(t, []int{1}, m.forced)

	require.Error(t, apply(m, []string{"force"}, logging.New("error")))
	require.Error(t, apply(m, []string{"force", "x"}, logging.New("error")))
	require.Error(t, apply(m, []string{"sideways"}, logging.New("error")))
}

func TestEmbeddedMigrations(t *testing.T) {
	up, err := migrations.FS.ReadFile("000001_create_demo_requests.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS demo_requests")
	assert.Contains(t, string(up), "payload       JSONB")

	down, err := migrations.FS.ReadFile("000001_create_demo_requests.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS demo_requests")
}
