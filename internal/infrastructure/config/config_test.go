package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"DROPSHIP_APP_NAME":                os.Getenv("DROPSHIP_APP_NAME"),
		"DROPSHIP_APP_ENV":                 os.Getenv("DROPSHIP_APP_ENV"),
		"DROPSHIP_DATABASE_HOST":           os.Getenv("DROPSHIP_DATABASE_HOST"),
		"DROPSHIP_DATABASE_PORT":           os.Getenv("DROPSHIP_DATABASE_PORT"),
		"DROPSHIP_DATABASE_USER":           os.Getenv("DROPSHIP_DATABASE_USER"),
		"DROPSHIP_DATABASE_PASSWORD":       os.Getenv("DROPSHIP_DATABASE_PASSWORD"),
		"DROPSHIP_DATABASE_DBNAME":         os.Getenv("DROPSHIP_DATABASE_DBNAME"),
		"DROPSHIP_DATABASE_SSLMODE":        os.Getenv("DROPSHIP_DATABASE_SSLMODE"),
		"DROPSHIP_DATABASE_MAX_OPEN_CONNS": os.Getenv("DROPSHIP_DATABASE_MAX_OPEN_CONNS"),
		"DROPSHIP_DATABASE_MAX_IDLE_CONNS": os.Getenv("DROPSHIP_DATABASE_MAX_IDLE_CONNS"),
		"DROPSHIP_OMS_BASE_URL":            os.Getenv("DROPSHIP_OMS_BASE_URL"),
		"DROPSHIP_OMS_USERNAME":            os.Getenv("DROPSHIP_OMS_USERNAME"),
		"DROPSHIP_OMS_PASSWORD":            os.Getenv("DROPSHIP_OMS_PASSWORD"),
		"DROPSHIP_OMS_MAX_RETRIES":         os.Getenv("DROPSHIP_OMS_MAX_RETRIES"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "dropship-invoicer", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "dropship", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 30*time.Second, cfg.OMS.Timeout)
		assert.Equal(t, 3, cfg.OMS.MaxRetries)
		assert.Equal(t, "tmp", cfg.Export.BaseDir)
		assert.Equal(t, 587, cfg.Mail.Port)
		assert.Equal(t, "dropship_invoice_run", cfg.Run.ProcessName)
	})

	t.Run("loads values from environment variables with DROPSHIP prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_NAME", "test-app")
		os.Setenv("DROPSHIP_APP_ENV", "testing")
		os.Setenv("DROPSHIP_DATABASE_HOST", "testdb.local")
		os.Setenv("DROPSHIP_DATABASE_PORT", "5433")
		os.Setenv("DROPSHIP_DATABASE_USER", "testuser")
		os.Setenv("DROPSHIP_DATABASE_PASSWORD", "testpass")
		os.Setenv("DROPSHIP_DATABASE_DBNAME", "testdb")
		os.Setenv("DROPSHIP_DATABASE_SSLMODE", "require")
		os.Setenv("DROPSHIP_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("DROPSHIP_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("DROPSHIP_OMS_BASE_URL", "https://oms.example.com/rest/api")
		os.Setenv("DROPSHIP_OMS_USERNAME", "api-user")
		os.Setenv("DROPSHIP_OMS_PASSWORD", "api-pass")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "https://oms.example.com/rest/api", cfg.OMS.BaseURL)
		assert.Equal(t, "api-user", cfg.OMS.Username)
		assert.Equal(t, "api-pass", cfg.OMS.Password)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("DROPSHIP_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates MaxRetries cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_OMS_MAX_RETRIES", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_retries cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"DROPSHIP_APP_ENV":                os.Getenv("DROPSHIP_APP_ENV"),
		"DROPSHIP_DATABASE_PASSWORD":      os.Getenv("DROPSHIP_DATABASE_PASSWORD"),
		"DROPSHIP_DATABASE_SSLMODE":       os.Getenv("DROPSHIP_DATABASE_SSLMODE"),
		"DROPSHIP_OMS_USERNAME":           os.Getenv("DROPSHIP_OMS_USERNAME"),
		"DROPSHIP_OMS_PASSWORD":           os.Getenv("DROPSHIP_OMS_PASSWORD"),
		"DROPSHIP_ACCOUNTING_TOKEN":       os.Getenv("DROPSHIP_ACCOUNTING_TOKEN"),
		"DROPSHIP_DELIVERY_DRY_RUN":       os.Getenv("DROPSHIP_DELIVERY_DRY_RUN"),
		"DROPSHIP_DELIVERY_TEST_CUSTOMER": os.Getenv("DROPSHIP_DELIVERY_TEST_CUSTOMER"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	// Helper to set valid production base config
	setValidProductionBase := func() {
		os.Setenv("DROPSHIP_APP_ENV", "production")
		os.Setenv("DROPSHIP_DATABASE_PASSWORD", "secure-password")
		os.Setenv("DROPSHIP_DATABASE_SSLMODE", "require")
		os.Setenv("DROPSHIP_OMS_USERNAME", "api-user")
		os.Setenv("DROPSHIP_OMS_PASSWORD", "api-pass")
		os.Setenv("DROPSHIP_ACCOUNTING_TOKEN", "prod-token")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("DROPSHIP_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("DROPSHIP_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires OMS credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("DROPSHIP_OMS_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oms.username and oms.password are required")
	})

	t.Run("requires accounting.token in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("DROPSHIP_ACCOUNTING_TOKEN")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accounting.token is required in production")
	})

	t.Run("rejects dry run in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("DROPSHIP_DELIVERY_DRY_RUN", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dry_run must be false in production")
	})

	t.Run("rejects test customer override in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("DROPSHIP_DELIVERY_TEST_CUSTOMER", "aag")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "test_customer must be empty in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
