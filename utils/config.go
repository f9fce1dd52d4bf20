package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"k8s.io/utils/strings/slices"
)

const (
	configDirName = ".cedana"
	envVar        = "CEDANA_ENV"
)

// EBS volume types accepted by RequestSpotInstances.
var ValidVolumeTypes = []string{
	"standard",
	"io1",
	"io2",
	"gp2",
	"gp3",
	"sc1",
	"st1",
}

type SpotConfig struct {
	AWSConfig  AWSConfig     `json:"aws" mapstructure:"aws"`
	Polling    PollingConfig `json:"polling" mapstructure:"polling"`
	Connection Connection    `json:"connection" mapstructure:"connection"`
	Watch      WatchConfig   `json:"watch" mapstructure:"watch"`
	// sqlite ledger of launched instances, defaults to ~/.cedana/spot_instances.db
	DBPath string `json:"db_path" mapstructure:"db_path"`
}

type Connection struct {
	NATSUrl   string `json:"nats_url" mapstructure:"nats_url"`
	NATSPort  int    `json:"nats_port" mapstructure:"nats_port"`
	AuthToken string `json:"auth_token" mapstructure:"auth_token"`
}

type AWSConfig struct {
	Region  string `json:"region" mapstructure:"region"`
	Profile string `json:"profile" mapstructure:"profile"`
	// static credentials, only used when both are set. Otherwise the default chain applies.
	AccessKeyID     string `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" mapstructure:"secret_access_key"`

	ImageId          string `json:"image_id" mapstructure:"image_id"` // AMI image id
	InstanceType     string `json:"instance_type" mapstructure:"instance_type"`
	SecurityGroup    string `json:"security_group" mapstructure:"security_group"`
	SSHKeyName       string `json:"ssh_key_name" mapstructure:"ssh_key_name"` // name of the EC2 key pair
	SSHKeyPath       string `json:"ssh_key_path" mapstructure:"ssh_key_path"` // path to the matching private key
	User             string `json:"user" mapstructure:"user"`
	AvailabilityZone string `json:"availability_zone" mapstructure:"availability_zone"`
	ValidForMinutes  int    `json:"valid_for_minutes" mapstructure:"valid_for_minutes"`
	// local path or s3://bucket/key
	UserData    string            `json:"user_data" mapstructure:"user_data"`
	BlockDevice BlockDeviceConfig `json:"block_device" mapstructure:"block_device"`
}

type BlockDeviceConfig struct {
	DeviceName   string `json:"device_name" mapstructure:"device_name"`
	VolumeSizeGB int32  `json:"volume_size_gb" mapstructure:"volume_size_gb"`
	VolumeType   string `json:"volume_type" mapstructure:"volume_type"`
	Encrypted    bool   `json:"encrypted" mapstructure:"encrypted"`
}

type PollingConfig struct {
	MaxRetries      int `json:"max_retries" mapstructure:"max_retries"`
	IntervalSeconds int `json:"interval_seconds" mapstructure:"interval_seconds"`
}

type WatchConfig struct {
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

func (a AWSConfig) ValidFor() time.Duration {
	return time.Duration(a.ValidForMinutes) * time.Minute
}

// ConfigDir returns ~/.cedana for the invoking user. When run through sudo the
// config of the original user is used.
func ConfigDir() (string, error) {
	username := os.Getenv("SUDO_USER")
	if username == "" {
		username = os.Getenv("USER")
	}

	if username != "" {
		if u, err := user.Lookup(username); err == nil {
			return filepath.Join(u.HomeDir, configDirName), nil
		}
	}

	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homedir, configDirName), nil
}

func configName() string {
	if os.Getenv(envVar) == "dev" {
		return "spot_config_dev"
	}
	return "spot_config"
}

// SetConfigFile points viper at an explicit config file, bypassing the
// ~/.cedana lookup.
func SetConfigFile(path string) {
	viper.SetConfigFile(path)
}

func setDefaults() {
	viper.SetDefault("aws.region", "us-east-1")
	viper.SetDefault("aws.profile", "")
	viper.SetDefault("aws.access_key_id", "")
	viper.SetDefault("aws.secret_access_key", "")
	viper.SetDefault("aws.image_id", "")
	viper.SetDefault("aws.instance_type", "")
	viper.SetDefault("aws.security_group", "")
	viper.SetDefault("aws.ssh_key_name", "")
	viper.SetDefault("aws.ssh_key_path", "")
	viper.SetDefault("aws.user", "ubuntu")
	viper.SetDefault("aws.availability_zone", "")
	viper.SetDefault("aws.valid_for_minutes", 720)
	viper.SetDefault("aws.user_data", "")
	viper.SetDefault("aws.block_device.device_name", "/dev/sda1")
	viper.SetDefault("aws.block_device.volume_size_gb", 8)
	viper.SetDefault("aws.block_device.volume_type", "gp2")
	viper.SetDefault("aws.block_device.encrypted", false)
	viper.SetDefault("polling.max_retries", 60)
	viper.SetDefault("polling.interval_seconds", 5)
	viper.SetDefault("connection.nats_url", "")
	viper.SetDefault("connection.nats_port", 4222)
	viper.SetDefault("connection.auth_token", "")
	viper.SetDefault("watch.schedule", "@every 30s")
	viper.SetDefault("db_path", "")
}

func InitSpotConfig() (*SpotConfig, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	viper.AddConfigPath(dir)
	viper.SetConfigType("json")
	viper.SetConfigName(configName())

	viper.SetEnvPrefix("cedana")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error loading config file: %w. Make sure that config exists and that it's formatted correctly!", err)
	}

	var config SpotConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.DBPath == "" {
		config.DBPath = filepath.Join(dir, "spot_instances.db")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *SpotConfig) Validate() error {
	if !slices.Contains(ValidVolumeTypes, c.AWSConfig.BlockDevice.VolumeType) {
		return fmt.Errorf("invalid volume type %q, expected one of %v", c.AWSConfig.BlockDevice.VolumeType, ValidVolumeTypes)
	}
	if c.AWSConfig.BlockDevice.VolumeSizeGB <= 0 {
		return fmt.Errorf("volume size must be positive, got %d", c.AWSConfig.BlockDevice.VolumeSizeGB)
	}
	if c.Polling.MaxRetries <= 0 {
		return fmt.Errorf("polling.max_retries must be positive, got %d", c.Polling.MaxRetries)
	}
	if c.Polling.IntervalSeconds <= 0 {
		return fmt.Errorf("polling.interval_seconds must be positive, got %d", c.Polling.IntervalSeconds)
	}
	return nil
}

// Used in bootstrap to create a placeholder config
func CreateSpotConfig(path string, region string) error {
	sc := &SpotConfig{
		AWSConfig: AWSConfig{
			Region:          region,
			SSHKeyPath:      "~/.ssh/path-to-aws-key.pem",
			User:            "ubuntu",
			ValidForMinutes: 720,
			BlockDevice: BlockDeviceConfig{
				DeviceName:   "/dev/sda1",
				VolumeSizeGB: 8,
				VolumeType:   "gp2",
			},
		},
		Polling: PollingConfig{
			MaxRetries:      60,
			IntervalSeconds: 5,
		},
		Connection: Connection{
			NATSPort: 4222,
		},
		Watch: WatchConfig{
			Schedule: "@every 30s",
		},
	}

	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("err: %v, could not marshal spot config struct to file", err)
	}
	err = os.WriteFile(path, b, 0o644)
	if err != nil {
		return fmt.Errorf("err: %v, could not write file to path %s", err, path)
	}

	return nil
}
