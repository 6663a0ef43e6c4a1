package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvEmail     = "MOOV_EMAIL"
	EnvPassword  = "MOOV_PASSWORD"
	EnvOutputDir = "MOOV_OUTPUT_DIR"
)

// LoadEnv loads the given .env files into the process environment and then
// applies the MOOV_* variables on top of s. Missing .env files are ignored.
// Variables already set in the environment are not overwritten by .env
// values.
func (s *Settings) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	overlay := map[string]*string{
		EnvEmail:     &s.Email,
		EnvPassword:  &s.Password,
		EnvOutputDir: &s.OutputDir,
	}
	for key, dst := range overlay {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}
