package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tokmz/showdown"
	"github.com/tokmz/showdown/pkg/config"
	"github.com/tokmz/showdown/pkg/logger"
	_ "github.com/tokmz/showdown/plugins/chatlog"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the server and stay online until interrupted",
	Args:  cobra.MaximumNArgs(0),
	RunE:  runClient,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// fileConfig 配置文件结构
type fileConfig struct {
	Server struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"server"`
	Login struct {
		Username   string        `mapstructure:"username"`
		Password   string        `mapstructure:"password"`
		URL        string        `mapstructure:"url"`
		Attempts   int           `mapstructure:"attempts"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
		CookieFile string        `mapstructure:"cookie_file"`
	} `mapstructure:"login"`
	Rooms   []string `mapstructure:"rooms"`
	Plugins []string `mapstructure:"plugins"`
	Log     struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   string `mapstructure:"file"`
	} `mapstructure:"log"`
}

func runClient(_ *cobra.Command, _ []string) error {
	cfg := config.New(
		config.WithConfigFile(configFile),
		config.WithEnvPrefix("SHOWDOWN"),
		config.WithEnvKeyReplacer(strings.NewReplacer(".", "_")),
	)
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("load config %s: %w", configFile, err)
	}
	defer cfg.Close()

	var fc fileConfig
	if err := cfg.Unmarshal(&fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	log, err := buildLogger(&fc)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	opts := []showdown.Option{
		showdown.WithCredentials(fc.Login.Username, fc.Login.Password),
		showdown.WithRooms(fc.Rooms...),
		showdown.WithPlugins(fc.Plugins...),
		showdown.WithLogger(log),
	}
	if fc.Server.URL != "" {
		opts = append(opts, showdown.WithServerURL(fc.Server.URL))
	}
	if fc.Login.URL != "" {
		opts = append(opts, showdown.WithLoginURL(fc.Login.URL))
	}
	if fc.Login.Attempts > 0 && fc.Login.RetryDelay > 0 {
		opts = append(opts, showdown.WithLoginRetry(fc.Login.Attempts, fc.Login.RetryDelay))
	}
	if fc.Login.CookieFile != "" {
		opts = append(opts, showdown.WithCookieStore(showdown.NewFileCookieStore(fc.Login.CookieFile)))
	}

	client, err := showdown.New(opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// buildLogger 按配置文件构建日志
func buildLogger(fc *fileConfig) (logger.Logger, error) {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(fc.Log.Level)),
		logger.WithConsoleOutput(),
	}
	if fc.Log.Format != "" {
		opts = append(opts, logger.WithFormat(logger.Format(fc.Log.Format)))
	} else {
		opts = append(opts, logger.WithFormat(logger.ConsoleFormat))
	}
	if fc.Log.File != "" {
		opts = append(opts, logger.WithRotateOutput(&logger.RotateConfig{
			Filename: fc.Log.File,
		}))
	}
	return logger.NewWithOptions(opts...)
}
