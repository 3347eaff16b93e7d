// Package config defines configuration for the easeld daemon.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (EASELD_ prefix)
//   - YAML configuration file
//
// # Structure
//
//	type Config struct {
//	    ListenAddr  string
//	    DataDir     string
//	    DownloadDir string
//	    ChunkSize   int
//	    Download    DownloadConfig
//	    Log         LogConfig
//	}
//
//	type DownloadConfig struct {
//	    Attempts int
//	    Backoff  time.Duration
//	    Timeout  time.Duration
//	}
package config
