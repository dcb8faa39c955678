package config

import (
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is everything onvifctl needs to reach one camera
type Config struct {
	Camera CameraConfig
	Server ServerConfig
	PTZ    PTZConfig
	Log    LogConfig
}

// CameraConfig is the camera address, credentials and session choices
type CameraConfig struct {
	Address  string
	Username string
	Password string
	Profile  int
	Events   bool
}

// ServerConfig is where the event callback and control API listen
type ServerConfig struct {
	Listen      string
	CallbackURL string
}

// PTZConfig tunes the PTZ coordinate mapping
type PTZConfig struct {
	TiltUsesPanRange bool
}

// LogConfig sets the log level
type LogConfig struct {
	Level string
}

// New returns a viper instance with defaults and environment binding set up.
// Environment variables use the ONVIFCTL_ prefix, e.g. ONVIFCTL_CAMERA_ADDRESS.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	v.SetDefault("camera.profile", 0)
	v.SetDefault("camera.events", true)
	v.SetDefault("server.listen", ":8089")
	v.SetDefault("ptz.tilt_uses_pan_range", true)
	v.SetDefault("log.level", "info")

	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".onvifctl" (without extension).
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".onvifctl")
	}

	v.SetEnvPrefix("onvifctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and returns the merged configuration.
// A missing default config file is not an error, a missing explicit one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Annotate(err, "reading config")
		}
	}

	cfg := &Config{
		Camera: CameraConfig{
			Address:  v.GetString("camera.address"),
			Username: v.GetString("camera.username"),
			Password: v.GetString("camera.password"),
			Profile:  v.GetInt("camera.profile"),
			Events:   v.GetBool("camera.events"),
		},
		Server: ServerConfig{
			Listen:      v.GetString("server.listen"),
			CallbackURL: v.GetString("server.callback_url"),
		},
		PTZ: PTZConfig{
			TiltUsesPanRange: v.GetBool("ptz.tilt_uses_pan_range"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
	if cfg.Camera.Address == "" {
		return nil, errors.NotValidf("empty camera.address")
	}
	return cfg, nil
}
