package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/bridgelock/listener/log"
	"github.com/bridgelock/listener/mintqueue"
	"github.com/bridgelock/listener/mintsender"
	"github.com/bridgelock/listener/scanner"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	// FlagCfg is the flag for cfg.
	FlagCfg = "cfg"

	// EnvVarPrefix prefixes every environment variable override, example:
	// BRIDGELOCK_SCANNER_CONFIRMATIONBLOCKS=6
	EnvVarPrefix = "BRIDGELOCK"
	ConfigType   = "toml"
)

// Config represents the configuration of the entire listener.
// The file is TOML format.
type Config struct {
	// URLRPCSource is the RPC url of the source chain node
	URLRPCSource string `mapstructure:"URLRPCSource"`
	// Configure Log level for all the services, allow also to store the logs in a file
	Log log.Config
	// Configuration of the block scanner of the source chain
	Scanner scanner.Config
	// Configuration of the mint queue and its workers
	MintQueue mintqueue.Config
	// Configuration of the destination chain mint sender
	MintSender mintsender.EVMConfig
}

// Default parses the default configuration values.
func Default() (*Config, error) {
	cfg := Config{}
	viper.SetConfigType(ConfigType)

	err := viper.ReadConfig(bytes.NewBuffer([]byte(DefaultValues)))
	if err != nil {
		return nil, err
	}
	err = viper.Unmarshal(&cfg, decodeHooks()...)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load loads the configuration: defaults, then the config file given with
// the cfg flag (if any), then environment variable overrides.
func Load(ctx *cli.Context) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	configFilePath := ctx.String(FlagCfg)
	if configFilePath != "" {
		dirName, fileName := filepath.Split(configFilePath)

		fileExtension := strings.TrimPrefix(filepath.Ext(fileName), ".")
		fileNameWithoutExtension := strings.TrimSuffix(fileName, "."+fileExtension)

		viper.AddConfigPath(dirName)
		viper.SetConfigName(fileNameWithoutExtension)
		viper.SetConfigType(fileExtension)
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.SetEnvPrefix(EnvVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFoundError) {
			return nil, err
		}
		if configFilePath != "" {
			return nil, err
		}
		log.Info("config file not found, using defaults")
	}

	err = viper.Unmarshal(&cfg, decodeHooks()...)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeHooks() []viper.DecoderConfigOption {
	return []viper.DecoderConfigOption{
		// this allows arrays to be decoded from env var separated by ",",
		// example: MY_VAR="value1,value2,value3"
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(), mapstructure.StringToSliceHookFunc(","))),
	}
}
