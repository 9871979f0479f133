package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[Logging]
  Level = "debug"

[Parameters]
  Name = "toy1021019"
  MaxSamplingRetries = 50

[Keystore]
  Path = "/tmp/keys.db"

[Server]
  Address = ":9000"
  ReadTimeout = "3s"
  RateLimit = 60
  KeyName = "server"
`

func TestLoad(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	cfg, err := Load([]byte(testConfig))
	require.NoError(err)
	assert.Equal("DEBUG", cfg.Logging.Level)
	assert.Equal("toy1021019", cfg.Parameters.Name)
	assert.False(cfg.Parameters.Custom())
	assert.Equal(50, cfg.Parameters.MaxSamplingRetries)
	assert.Equal("keys", cfg.Keystore.Bucket)
	assert.Equal(":9000", cfg.Server.Address)
	assert.Equal(3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(defaultWorkers, cfg.Server.Workers)
	assert.Equal(defaultRequestTimeout, cfg.Server.RequestTimeout)
	assert.Equal(60, cfg.Server.RateLimit)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, defaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, defaultParams, cfg.Parameters.Name)
	assert.Nil(t, cfg.Keystore)
	assert.Nil(t, cfg.Server)

	assert.Equal(t, cfg, Default())
}

func TestLoadCustomParameters(t *testing.T) {
	cfg, err := Load([]byte(`
[Parameters]
  P = "419"
  A = "0"
  Trace = "0"

  [[Parameters.Primes]]
    L = 3
    Kind = "radical"
    LowerBound = 2
    UpperBound = 2
    Backward = true

  [[Parameters.Primes]]
    L = 7
    UpperBound = 1
`))
	require.NoError(t, err)
	p := cfg.Parameters
	assert.True(t, p.Custom())
	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, "1", p.B)
	require.Len(t, p.Primes, 2)
	assert.Equal(t, "radical", p.Primes[0].Kind)
	assert.Equal(t, "velu", p.Primes[1].Kind)
	assert.False(t, p.Primes[1].Backward)
}

func TestLoadRejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{"nil", ""},
		{"syntax", "[Logging"},
		{"undecoded key", "[Logging]\nColour = true"},
		{"bad level", "[Logging]\nLevel = \"LOUD\""},
		{"curve without P", "[Parameters]\nA = \"6\""},
		{"custom without trace", "[Parameters]\nP = \"419\"\nA = \"0\""},
		{"custom without primes", "[Parameters]\nP = \"419\"\nA = \"0\"\nTrace = \"0\""},
		{"negative retries", "[Parameters]\nMaxSamplingRetries = -1"},
		{"keystore without path", "[Keystore]\nBucket = \"b\""},
		{"server without keystore", "[Server]\nKeyName = \"k\""},
		{"server without key", "[Keystore]\nPath = \"k.db\"\n[Server]\nAddress = \":1\""},
		{"negative rate limit", "[Keystore]\nPath = \"k.db\"\n[Server]\nKeyName = \"k\"\nRateLimit = -1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var b []byte
			if tc.name != "nil" {
				b = []byte(tc.body)
			}
			_, err := Load(b)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "csidh.toml")
	require.NoError(t, os.WriteFile(f, []byte(testConfig), 0600))

	cfg, err := LoadFile(f)
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Server.KeyName)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
