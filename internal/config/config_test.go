package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8421, cfg.Server.Port)
	assert.Equal(t, "public", cfg.Server.StaticDir)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
	assert.Equal(t, 45, cfg.Oracle.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Scraper.MaxConcurrency)
	assert.Equal(t, 15, cfg.Scraper.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Scraper.MaxBatchSize)
	assert.Equal(t, DefaultCategories, cfg.Feed.Categories)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "newswire.toml")
	content := `
[server]
port = 9000

[oracle]
api_key = "file-key"

[feed]
categories = ["tech", "science"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "file-key", cfg.Oracle.APIKey)
	assert.Equal(t, []string{"tech", "science"}, cfg.Feed.Categories)
	// untouched defaults survive a partial file
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NEWSWIRE_SERVER_PORT", "7777")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestLoadConfig_WellKnownEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://localhost/newswire")
	t.Setenv("TWITTER_API_KEY", "k")
	t.Setenv("TWITTER_API_SECRET", "s")
	t.Setenv("TWITTER_ACCESS_TOKEN", "at")
	t.Setenv("TWITTER_ACCESS_SECRET", "as")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, "postgres://localhost/newswire", cfg.Database.URL)
	assert.True(t, cfg.AnnouncerEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Server.Port = 8421
		cfg.Oracle.APIKey = "sk-test"
		cfg.Database.URL = "postgres://localhost/newswire"
		cfg.Feed.Categories = []string{"tech"}
		return cfg
	}

	t.Run("complete config passes", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("missing oracle key", func(t *testing.T) {
		cfg := valid()
		cfg.Oracle.APIKey = ""
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key")
	})

	t.Run("missing database url", func(t *testing.T) {
		cfg := valid()
		cfg.Database.URL = ""
		assert.Error(t, Validate(cfg))
	})

	t.Run("empty categories", func(t *testing.T) {
		cfg := valid()
		cfg.Feed.Categories = nil
		assert.Error(t, Validate(cfg))
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 70000
		assert.Error(t, Validate(cfg))
	})
}

func TestAnnouncerEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AnnouncerEnabled())

	cfg.Announcer.APIKey = "k"
	cfg.Announcer.APISecret = "s"
	cfg.Announcer.AccessToken = "at"
	assert.False(t, cfg.AnnouncerEnabled())

	cfg.Announcer.AccessSecret = "as"
	assert.True(t, cfg.AnnouncerEnabled())
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newswire.toml")
	require.NoError(t, InitConfig(path))

	// sample must itself load
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8421, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Feed.Categories)

	assert.Error(t, InitConfig(path))
}
