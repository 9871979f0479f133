// Package config loads the TOML configuration of the csidhctl tools and the
// exchange server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel       = "NOTICE"
	defaultParams         = "toy419"
	defaultAddress        = "127.0.0.1:8419"
	defaultReadTimeout    = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultWorkers        = 4
	defaultKeystoreBucket = "keys"
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl // Force uppercase.
	return nil
}

// PrimeEntry configures one degree of a custom parameter set.
type PrimeEntry struct {
	L          int
	Kind       string
	LowerBound int64
	UpperBound int64
	Backward   bool
}

// Parameters selects the parameter set. Either Name refers to a built-in
// set, or P, A, B, Trace and Primes describe a custom one. Integers are
// given in decimal.
type Parameters struct {
	Name string

	P     string
	A     string
	B     string
	Trace string

	Primes []PrimeEntry

	// MaxSamplingRetries bounds torsion point sampling; 0 selects the
	// default.
	MaxSamplingRetries int
}

// Custom reports whether the section describes a custom parameter set.
func (pCfg *Parameters) Custom() bool {
	return pCfg.P != ""
}

func (pCfg *Parameters) validate() error {
	if pCfg.MaxSamplingRetries < 0 {
		return errors.New("config: Parameters: MaxSamplingRetries is negative")
	}
	if !pCfg.Custom() {
		if len(pCfg.Primes) != 0 || pCfg.A != "" || pCfg.B != "" || pCfg.Trace != "" {
			return errors.New("config: Parameters: curve fields set without P")
		}
		if pCfg.Name == "" {
			pCfg.Name = defaultParams
		}
		return nil
	}
	if pCfg.Name == "" {
		pCfg.Name = "custom"
	}
	if pCfg.A == "" || pCfg.Trace == "" {
		return errors.New("config: Parameters: custom set needs A and Trace")
	}
	if pCfg.B == "" {
		pCfg.B = "1"
	}
	if len(pCfg.Primes) == 0 {
		return errors.New("config: Parameters: custom set has no Primes")
	}
	for i, pr := range pCfg.Primes {
		if pr.Kind == "" {
			pCfg.Primes[i].Kind = "velu"
		}
	}
	return nil
}

// Keystore is the on-disk key database configuration.
type Keystore struct {
	// Path is the bbolt database file.
	Path string

	// Bucket is the bucket holding the key records.
	Bucket string
}

func (kCfg *Keystore) validate() error {
	if kCfg.Path == "" {
		return errors.New("config: Keystore: Path is not set")
	}
	if kCfg.Bucket == "" {
		kCfg.Bucket = defaultKeystoreBucket
	}
	return nil
}

// Server is the exchange server configuration.
type Server struct {
	// Address is the host:port to listen on.
	Address string

	// ReadTimeout bounds the time spent reading a request.
	ReadTimeout time.Duration

	// Workers bounds the number of exchanges computed concurrently.
	Workers int

	// RequestTimeout bounds the handling of one request.
	RequestTimeout time.Duration

	// RateLimit is the number of exchanges one client may start per
	// minute, 0 for no limit.
	RateLimit int

	// KeyName is the keystore record used as the server's private key.
	KeyName string
}

func (sCfg *Server) validate() error {
	if sCfg.Address == "" {
		sCfg.Address = defaultAddress
	}
	if sCfg.ReadTimeout <= 0 {
		sCfg.ReadTimeout = defaultReadTimeout
	}
	if sCfg.Workers <= 0 {
		sCfg.Workers = defaultWorkers
	}
	if sCfg.RequestTimeout <= 0 {
		sCfg.RequestTimeout = defaultRequestTimeout
	}
	if sCfg.RateLimit < 0 {
		return fmt.Errorf("config: Server: RateLimit %d is negative", sCfg.RateLimit)
	}
	if sCfg.KeyName == "" {
		return errors.New("config: Server: KeyName is not set")
	}
	return nil
}

// Config is the top level configuration.
type Config struct {
	Logging    *Logging
	Parameters *Parameters
	Keystore   *Keystore
	Server     *Server
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration sections. Keystore and Server are optional.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Logging == nil {
		l := defaultLogging
		cfg.Logging = &l
	}
	if cfg.Parameters == nil {
		cfg.Parameters = &Parameters{}
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	if err := cfg.Parameters.validate(); err != nil {
		return err
	}
	if cfg.Keystore != nil {
		if err := cfg.Keystore.validate(); err != nil {
			return err
		}
	}
	if cfg.Server != nil {
		if cfg.Keystore == nil {
			return errors.New("config: Server block set without a Keystore")
		}
		if err := cfg.Server.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a validated configuration using the built-in defaults.
func Default() *Config {
	cfg := new(Config)
	if err := cfg.FixupAndValidate(); err != nil {
		panic(err)
	}
	return cfg
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: nil buffer as config file")
	}

	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
