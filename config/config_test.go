package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "payroll.db", cfg.Store.Path)
	assert.Equal(t, "2025-04-06", cfg.Payroll.FiscalWeek1Ending)
	assert.Equal(t, "", cfg.Payroll.ExportToken)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAYROLL_SERVER_PORT", "9090")
	t.Setenv("PAYROLL_PAYROLL_EXPORT_TOKEN", "s3cret")
	t.Setenv("PAYROLL_PAYROLL_FISCAL_WEEK1_ENDING", "2026-04-05")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Payroll.ExportToken)
	assert.Equal(t, "2026-04-05", cfg.Payroll.FiscalWeek1Ending)
}

func TestInitLogger(t *testing.T) {
	logger, err := config.InitLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = config.InitLogger(config.LogConfig{Level: "chatty", Format: "json"})
	assert.Error(t, err)
}
