package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	aws_helpers "github.com/cedana/cedana-spot/aws"
	"github.com/cedana/cedana-spot/utils"
	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const keyPairName = "cedana-spot-key"

// Bootstrap cedana-spot
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Setup host for cedana-spot usage",
	Long:  "Create ~/.cedana/spot_config.json, check for AWS credentials and set up an ssh key for launched instances.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := utils.GetLogger()
		b := &Bootstrap{
			l:   &logger,
			ctx: cmd.Context(),
		}

		if err := b.createConfig(); err != nil {
			return fmt.Errorf("could not create config: %w", err)
		}

		return b.AWSBootstrap()
	},
}

type Bootstrap struct {
	l   *zerolog.Logger
	c   *utils.SpotConfig
	ctx context.Context
}

func (b *Bootstrap) createConfig() error {
	configFolderPath, err := utils.ConfigDir()
	if err != nil {
		return err
	}
	// check that $HOME/.cedana folder exists - create if it doesn't
	if _, err := os.Stat(configFolderPath); err != nil {
		b.l.Info().Msg("config folder doesn't exist, creating...")
		if err := os.MkdirAll(configFolderPath, 0o755); err != nil {
			return err
		}
	}

	b.l.Info().Msg("checking for config...")
	configPath := filepath.Join(configFolderPath, "spot_config.json")
	_, err = os.Stat(configPath)
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	b.l.Info().Msg("spot_config.json does not exist, creating template")
	prompt := promptui.Prompt{
		Label:   "Enter the aws region to launch spot instances in",
		Default: "us-east-1",
	}
	region, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("error reading prompt input: %w", err)
	}

	return utils.CreateSpotConfig(configPath, region)
}

func (b *Bootstrap) AWSBootstrap() error {
	c, err := utils.InitSpotConfig()
	if err != nil {
		return err
	}
	b.c = c

	// .aws/credentials check
	// can't proceed w/ invalid creds
	b.l.Info().Msg("checking for local aws credentials in env and ~/.aws/credentials..")
	cfg, err := aws_helpers.LoadConfig(b.ctx, b.c.AWSConfig)
	if err == nil {
		_, err = cfg.Credentials.Retrieve(b.ctx)
	}
	if err != nil {
		b.l.Error().Err(err).Msg("Could not find credentials in env vars or shared configuration folder. Follow instructions here to set them up for your AWS account: https://docs.aws.amazon.com/cli/latest/userguide/cli-configure-files.html")
		return err
	}
	b.l.Info().Msg("aws credentials found!")

	// check and set key file for ssh access.
	b.l.Info().Msg("checking for .pem key file for ssh access to instances...")
	if b.c.AWSConfig.SSHKeyName == "" || !fileExists(b.c.AWSConfig.SSHKeyPath) {
		b.l.Info().Msg("no usable key pair found in config!")
		return b.promptAWSKey(ec2.NewFromConfig(cfg))
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (b *Bootstrap) promptAWSKey(client *ec2.Client) error {
	prompt := promptui.Select{
		Label: "Do you have a valid key pair for ec2 instance ssh access? [Y/n]",
		Items: []string{"Y", "n"},
	}

	_, result, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("error reading prompt: %w", err)
	}

	if result == "Y" {
		name, err := (&promptui.Prompt{Label: "Enter the name of the key pair"}).Run()
		if err != nil {
			return fmt.Errorf("error reading prompt: %w", err)
		}
		path, err := (&promptui.Prompt{
			Label: "Enter path for key file",
			Validate: func(s string) error {
				if !fileExists(s) {
					return errors.New("file does not exist")
				}
				return nil
			},
		}).Run()
		if err != nil {
			return fmt.Errorf("error reading prompt: %w", err)
		}
		return b.writeKey(name, path)
	}

	prompt = promptui.Select{
		Label: "create one from credentials? [Y/n]",
		Items: []string{"Y", "n"},
	}
	_, r, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("error reading prompt: %w", err)
	}
	if r == "n" {
		b.l.Info().Msg("follow these instructions to create your own keyfile: https://docs.aws.amazon.com/AWSEC2/latest/UserGuide/ec2-key-pairs.html")
		return nil
	}

	b.l.Info().Str("region", b.c.AWSConfig.Region).Msg("creating key pair")
	return b.CreateAWSKeyFile(client)
}

func (b *Bootstrap) CreateAWSKeyFile(client *ec2.Client) error {
	out, err := client.CreateKeyPair(b.ctx, &ec2.CreateKeyPairInput{
		KeyName: aws.String(keyPairName),
	})
	if err != nil {
		return fmt.Errorf("error creating key pair: %w", err)
	}

	// save key to .cedana
	dir, err := utils.ConfigDir()
	if err != nil {
		return err
	}
	keyPath := filepath.Join(dir, keyPairName+".pem")
	if err := os.WriteFile(keyPath, []byte(aws.ToString(out.KeyMaterial)), 0o600); err != nil {
		return fmt.Errorf("error writing keyfile to disk: %w", err)
	}

	return b.writeKey(keyPairName, keyPath)
}

func (b *Bootstrap) writeKey(name, path string) error {
	viper.Set("aws.ssh_key_name", name)
	viper.Set("aws.ssh_key_path", path)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("could not write spot config to file: %w", err)
	}
	b.l.Info().Str("key_name", name).Str("key_path", path).Msg("wrote key pair to config")
	return nil
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}
