package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFile is the config file looked up in the current
	// directory when -config is not given.
	DefaultConfigFile = "rcp-bridge.toml"
)

// Config holds the whole application configuration.
type Config struct {
	Debug  bool `toml:"debug"`
	Camera struct {
		Host           string `toml:"host"`
		PollInterval   string `toml:"poll_interval"`   // e.g. "1s"
		ReconnectDelay string `toml:"reconnect_delay"` // e.g. "5s"
	} `toml:"camera"`
	Log struct {
		Filename string `toml:"filename"`
	} `toml:"log"`
	WebSocket struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"websocket"`
	Console struct {
		Enabled bool `toml:"enabled"`
	} `toml:"console"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Debug: false,
	}
	cfg.Camera.PollInterval = "1s"
	cfg.Camera.ReconnectDelay = "5s"
	cfg.Log.Filename = "rcp-bridge.log"
	cfg.WebSocket.Enabled = false
	cfg.WebSocket.Addr = "localhost:8080"
	cfg.Console.Enabled = true
	return cfg
}

// LoadConfig loads the configuration, in order of priority:
// 1. the config file at configPath when given
// 2. DefaultConfigFile in the current directory when present
// 3. built-in defaults
func LoadConfig(configPath string) (*Config, error) {
	config := NewConfig()

	filePath := configPath
	if filePath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			filePath = DefaultConfigFile
		} else {
			return config, nil
		}
	}

	if _, err := toml.DecodeFile(filePath, config); err != nil {
		return nil, err
	}

	return config, nil
}

// PollInterval parses the camera poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Camera.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid camera.poll_interval %q: %w", c.Camera.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("camera.poll_interval must be positive, got %q", c.Camera.PollInterval)
	}
	return d, nil
}

// ReconnectDelay parses the camera reconnect delay.
func (c *Config) ReconnectDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Camera.ReconnectDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid camera.reconnect_delay %q: %w", c.Camera.ReconnectDelay, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("camera.reconnect_delay must be positive, got %q", c.Camera.ReconnectDelay)
	}
	return d, nil
}

// ApplyCommandLineArgs overrides config values with flags the user actually
// passed.
func (c *Config) ApplyCommandLineArgs(args CommandLineArgs) {
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.CameraHostSpecified {
		c.Camera.Host = args.CameraHost
	}
	if args.LogFilenameSpecified {
		c.Log.Filename = args.LogFilename
	}
	if args.WebSocketEnabledSpecified {
		c.WebSocket.Enabled = args.WebSocketEnabled
	}
	if args.WebSocketAddrSpecified {
		c.WebSocket.Addr = args.WebSocketAddr
	}
	if args.ConsoleEnabledSpecified {
		c.Console.Enabled = args.ConsoleEnabled
	}
}

// CommandLineArgs holds values from command line flags, with a Specified flag
// per value so unset flags do not clobber the config file.
type CommandLineArgs struct {
	ConfigFile      string
	ConfigSpecified bool

	Debug          bool
	DebugSpecified bool

	CameraHost          string
	CameraHostSpecified bool

	LogFilename          string
	LogFilenameSpecified bool

	WebSocketEnabled          bool
	WebSocketEnabledSpecified bool
	WebSocketAddr             string
	WebSocketAddrSpecified    bool

	ConsoleEnabled          bool
	ConsoleEnabledSpecified bool
}

// ParseCommandLineArgs parses the command line flags.
func ParseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	configFileFlag := flag.String("config", "", "path to the TOML config file")

	debugFlag := flag.Bool("debug", false, "enable debug logging")
	cameraHostFlag := flag.String("camera", "", "camera host name or IP address")
	logFilenameFlag := flag.String("log", "rcp-bridge.log", "log file name")

	websocketFlag := flag.Bool("websocket", false, "enable the WebSocket observer server")
	wsAddrFlag := flag.String("ws-addr", "localhost:8080", "WebSocket server listen address")

	consoleFlag := flag.Bool("console", true, "enable the interactive console")

	flag.Parse()

	// flag.Parse alone cannot tell a default from an explicit value, so scan
	// os.Args for the flags that were actually present.
	argsMap := make(map[string]bool)
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if len(arg) == 0 || arg[0] != '-' {
			continue
		}
		flagName := arg[1:]
		if len(flagName) > 0 && flagName[0] == '-' {
			flagName = flagName[1:]
		}
		for j := 0; j < len(flagName); j++ {
			if flagName[j] == '=' {
				flagName = flagName[:j]
				break
			}
		}
		argsMap[flagName] = true
		if i+1 < len(os.Args) && len(os.Args[i+1]) > 0 && os.Args[i+1][0] != '-' {
			i++
		}
	}

	args.ConfigFile = *configFileFlag
	args.ConfigSpecified = argsMap["config"]

	args.Debug = *debugFlag
	args.DebugSpecified = argsMap["debug"]

	args.CameraHost = *cameraHostFlag
	args.CameraHostSpecified = argsMap["camera"]

	args.LogFilename = *logFilenameFlag
	args.LogFilenameSpecified = argsMap["log"]

	args.WebSocketEnabled = *websocketFlag
	args.WebSocketEnabledSpecified = argsMap["websocket"]

	args.WebSocketAddr = *wsAddrFlag
	args.WebSocketAddrSpecified = argsMap["ws-addr"]

	args.ConsoleEnabled = *consoleFlag
	args.ConsoleEnabledSpecified = argsMap["console"]

	return args
}
