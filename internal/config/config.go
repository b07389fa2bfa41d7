package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Player and search backend executables
	MPVBinary   string
	YTDLPBinary string

	// Maximum number of search results per query
	SearchLimit int

	// Auto-advance to the next track in the originating tab at end of track
	Advance bool

	// Seek step in seconds for relative seeks
	SeekStep float64

	// Volume change per keypress
	VolumeStep int

	// Initial playback volume (0-100)
	Volume int

	// Presence sidecar settings
	Presence PresenceConfig
}

// PresenceConfig holds presence sidecar specific configuration
type PresenceConfig struct {
	// Enabled gates the sidecar without clearing the command.
	Enabled bool

	// Command line to spawn the sidecar; the player IPC socket path is
	// appended as the final argument. Empty disables the feature.
	Command []string
}

// SidecarCommand returns the command to supervise, or nil when the
// sidecar is disabled.
func (p PresenceConfig) SidecarCommand() []string {
	if !p.Enabled {
		return nil
	}
	return p.Command
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("mpv_binary", "mpv")
	v.SetDefault("ytdlp_binary", "yt-dlp")
	v.SetDefault("search_limit", 10)
	v.SetDefault("advance", true)
	v.SetDefault("seek_step", 5.0)
	v.SetDefault("volume_step", 5)
	v.SetDefault("volume", 100)
	v.SetDefault("presence.enabled", true)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables
	v.SetEnvPrefix("STRUM")
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		MPVBinary:   v.GetString("mpv_binary"),
		YTDLPBinary: v.GetString("ytdlp_binary"),
		SearchLimit: v.GetInt("search_limit"),
		Advance:     v.GetBool("advance"),
		SeekStep:    v.GetFloat64("seek_step"),
		VolumeStep:  v.GetInt("volume_step"),
		Volume:      v.GetInt("volume"),
		Presence: PresenceConfig{
			Enabled: v.GetBool("presence.enabled"),
			Command: v.GetStringSlice("presence.command"),
		},
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "strum")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// GetDataDir returns the data directory for the track store and log file
// Creates the directory if it doesn't exist
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	dataDir := filepath.Join(homeDir, ".local", "share", "strum")

	_ = os.MkdirAll(dataDir, 0755)

	return dataDir
}
