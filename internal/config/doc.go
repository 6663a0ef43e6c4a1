// Package config provides configuration management for moov-dl.
//
// Settings come from three layers, later ones winning:
//   - config.json, read by Load (a missing file means defaults)
//   - MOOV_EMAIL, MOOV_PASSWORD and MOOV_OUTPUT_DIR, from the environment
//     or a .env file, applied by Settings.LoadEnv
//   - command line flags, applied by the caller
//
// # Loading
//
//	settings, err := config.Load("config.json")
//	if err != nil {
//	    return err
//	}
//	if err := settings.LoadEnv(".env"); err != nil {
//	    return err
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// # Saving Settings
//
//	settings.OutputDir = "/music"
//	err := settings.Save("config.json")
package config
