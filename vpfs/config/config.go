package config

import (
	"fmt"
	"io/fs"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	internal "github.com/ZanzyTHEbar/virtual-procfs/vpfs"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/policy"

	"github.com/spf13/viper"
)

// Config stores all configuration of the translator.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ProcFS ProcFSConfig `mapstructure:"procfs"`
}

// ProcFSConfig stores the translator-specific knobs. These arrive already
// shaped for the attribute policy; Policy() performs the final validation
// and resolution.
type ProcFSConfig struct {
	MountPoint string `mapstructure:"mountPoint"`
	AllowOther bool   `mapstructure:"allowOther"`
	Demo       bool   `mapstructure:"demo"` // serve a canned process table instead of the host's

	ClkTck     int64  `mapstructure:"clkTck"`     // clock ticks per second shown to clients
	StatMode   string `mapstructure:"statMode"`   // octal mode override for the stat file
	FakeSelf   int32  `mapstructure:"fakeSelf"`   // fixed self target; negative means caller-relative
	KernelPID  int32  `mapstructure:"kernelPid"`  // pid presented as the kernel process
	AnonOwner  string `mapstructure:"anonOwner"`  // user name or numeric uid for ownerless nodes
	Compatible bool   `mapstructure:"compatible"` // apply the Linux-compatibility preset
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("procfs.mountPoint", internal.DefaultMountPoint)
	viper.SetDefault("procfs.allowOther", false)
	viper.SetDefault("procfs.demo", false)
	viper.SetDefault("procfs.clkTck", policy.DefaultClkTck)
	viper.SetDefault("procfs.statMode", "0400")
	viper.SetDefault("procfs.fakeSelf", policy.CallerSelf)
	viper.SetDefault("procfs.kernelPid", policy.DefaultKernelPID)
	viper.SetDefault("procfs.anonOwner", strconv.Itoa(policy.DefaultAnonOwner))
	viper.SetDefault("procfs.compatible", false)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // procfs.kernelPid becomes PROCFS_KERNELPID

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

// Policy validates the configured knobs and resolves them into the
// immutable attribute policy handed to every provider.
func (c *Config) Policy() (policy.Policy, error) {
	pc := c.ProcFS
	if pc.Compatible {
		// Linux-compatibility preset: permissive stat mode, canonical tick
		// unit, self fixed to pid 1.
		pc.ClkTck = 100
		pc.StatMode = "0444"
		pc.FakeSelf = 1
	}

	if pc.ClkTck <= 0 {
		return policy.Policy{}, fmt.Errorf("clkTck must be a positive integer, got %d", pc.ClkTck)
	}
	if pc.KernelPID <= 0 {
		return policy.Policy{}, fmt.Errorf("kernelPid must be a positive integer, got %d", pc.KernelPID)
	}

	mode, err := strconv.ParseUint(strings.TrimPrefix(pc.StatMode, "0o"), 8, 32)
	if err != nil || mode&^uint64(0o7777) != 0 {
		return policy.Policy{}, fmt.Errorf("statMode must be an octal mode, got %q", pc.StatMode)
	}

	owner, err := resolveOwner(pc.AnonOwner)
	if err != nil {
		return policy.Policy{}, err
	}

	fakeSelf := pc.FakeSelf
	if fakeSelf < 0 {
		fakeSelf = policy.CallerSelf
	}

	return policy.Policy{
		ClkTck:    pc.ClkTck,
		StatMode:  fs.FileMode(mode),
		FakeSelf:  fakeSelf,
		KernelPID: pc.KernelPID,
		AnonOwner: owner,
	}, nil
}

// resolveOwner accepts a user name or a numeric uid.
func resolveOwner(name string) (uint32, error) {
	if u, err := user.Lookup(name); err == nil {
		uid, err := strconv.ParseUint(u.Uid, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("user %q has a non-numeric uid %q", name, u.Uid)
		}
		return uint32(uid), nil
	}
	uid, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("anonOwner must be a user name or a numeric uid, got %q", name)
	}
	return uint32(uid), nil
}
