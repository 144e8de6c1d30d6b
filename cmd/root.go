// -- cmd/root.go --
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/internal/agent"
	"github.com/xkilldash9x/deskops/internal/config"
	"github.com/xkilldash9x/deskops/internal/observability"
)

var cfgFile string

// rootCmd represents the base command. Invoked bare it starts the interactive
// session loop.
var rootCmd = &cobra.Command{
	Use:   "deskops",
	Short: "DesktopOps is a vision-model-driven desktop operator.",
	// Version is dynamically set at build time. See cmd/version.go.
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		return runREPL(cmd.Context(), cfg)
	},
}

// persistentPreRunE is assigned in init rather than in the rootCmd literal to
// avoid an initialization cycle (initializeConfig -> bindRootFlags -> rootCmd).
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	// Runs before any command, setting up config and logging.
	if err := initializeConfig(); err != nil {
		return err
	}

	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		// Initialize a fallback logger so the failure is still reported
		// through the normal channel.
		observability.InitializeLogger(config.LoggingConfig{Level: "info", Format: "console"})
		return err
	}

	observability.InitializeLogger(cfg.Logging)
	observability.GetLogger().Info("Starting deskops", zap.String("version", Version))
	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. SIGINT and SIGTERM cancel the command context so runs stop
// at the next iteration boundary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		stop()
		observability.Sync()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = persistentPreRunE
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("provider", "", "model provider (openai, anthropic, gemini, zhipu)")
	rootCmd.PersistentFlags().String("model", "", "model name")
	rootCmd.PersistentFlags().String("backend", "", "execution backend (dryrun, cdp, imagedir)")
	rootCmd.PersistentFlags().Int("max-steps", 0, "step budget per instruction")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeConfig reads the config file and DESKOPS_* environment variables.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if dir, err := config.DefaultConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DESKOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindRootFlags(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}
	return nil
}

// bindRootFlags maps the shared flags onto their viper keys so CLI values
// override file and environment values.
func bindRootFlags(v *viper.Viper) error {
	flags := rootCmd.PersistentFlags()
	bindings := map[string]string{
		"provider":       "provider",
		"model":          "model",
		"backend.kind":   "backend",
		"loop.max_steps": "max-steps",
	}
	for key, flag := range bindings {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		// Only bind flags the operator actually set, so zero values never
		// clobber configured ones.
		if f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// stopWords end the interactive session.
var stopWords = map[string]struct{}{
	"/stop": {},
	"/exit": {},
	"/quit": {},
}

// runREPL reads instructions from stdin until a stop word or EOF, running
// each through a shared Session.
func runREPL(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	session, err := agent.NewSession(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.Close()

	console := session.Console()
	console.Greeting()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, stop := stopWords[strings.ToLower(line)]; stop {
			break
		}

		console.Ack()
		_, runDir, err := session.RunInstruction(ctx, line)
		if err != nil {
			logger.Error("Instruction run failed", zap.Error(err))
			continue
		}
		console.LogsAt(runDir)

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}
