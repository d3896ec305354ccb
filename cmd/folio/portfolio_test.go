package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPortfolio(t *testing.T) {
	t.Run("bare list", func(t *testing.T) {
		pf, err := readPortfolio(writeFile(t, `[{"symbol":"AAPL","quantity":10,"purchase_price":150}]`))
		require.NoError(t, err)
		require.Len(t, pf.Positions, 1)
		assert.Equal(t, "AAPL", pf.Positions[0].Symbol)
		assert.Empty(t, pf.RiskTolerance)
	})

	t.Run("with profile", func(t *testing.T) {
		pf, err := readPortfolio(writeFile(t, `{
			"positions": [{"symbol":"MSFT","quantity":5,"purchase_price":300}],
			"risk_tolerance": "aggressive",
			"time_horizon": "1-3 years"
		}`))
		require.NoError(t, err)
		require.Len(t, pf.Positions, 1)
		assert.Equal(t, "aggressive", pf.RiskTolerance)
		assert.Equal(t, "1-3 years", pf.TimeHorizon)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := readPortfolio(writeFile(t, `{"positions":`))
		assert.True(t, errors.Is(err, core.ErrInvalidPosition))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := readPortfolio(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}
