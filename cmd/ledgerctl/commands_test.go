package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger/internal/domain"
)

func TestParseAccountAmount(t *testing.T) {
	_, _, err := parseAccountAmount("not-a-uuid", "10.00")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, _, err = parseAccountAmount("6f1c2b9e-0c1d-4a57-9d2e-3b8f2f6a9c10", "10.001")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	id, amt, err := parseAccountAmount("6f1c2b9e-0c1d-4a57-9d2e-3b8f2f6a9c10", "10.50")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2b9e-0c1d-4a57-9d2e-3b8f2f6a9c10", id.String())
	assert.Equal(t, "10.50", amt.StringFixed(2))
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTime("2026-01-02T03:04:05Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2026, got.Year())

	_, err = parseTime("yesterday")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(domain.ErrInvalidAmount))
	assert.Equal(t, 3, exitCode(domain.ErrAccountNotFound))
	assert.Equal(t, 4, exitCode(domain.ErrInsufficientFunds))
	assert.Equal(t, 5, exitCode(domain.ErrContention))
	assert.Equal(t, 1, exitCode(assert.AnError))
}
