package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	headless   bool
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:           "mealdash",
		Short:         "Automates placing food orders through the storefront's browser UI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	root.PersistentFlags().BoolVar(&headless, "headless", false, "Run the browser headless")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable detailed debug logging")

	root.AddCommand(newServeCmd(), newOrderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP order endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			fmt.Println("╔═══════════════════════════════════════════╗")
			fmt.Println("║           mealdash order server           ║")
			fmt.Println("╚═══════════════════════════════════════════╝")
			fmt.Printf("Browser Profile: %s\n", config.BrowserProfilePath)
			fmt.Printf("Listening on:    %s\n\n", config.ListenAddr)

			workflow, sessions, err := startEngine(config, log)
			if err != nil {
				return err
			}
			defer sessions.Close()

			return newRouter(workflow, log).Run(config.ListenAddr)
		},
	}
}

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Place a single order interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			workflow, sessions, err := startEngine(config, log)
			if err != nil {
				return err
			}
			defer sessions.Close()

			fmt.Print("What would you like to order? ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			dish := strings.TrimSpace(line)
			if dish == "" {
				return fmt.Errorf("no dish name given")
			}

			if err := workflow.PlaceOrder(dish); err != nil {
				return err
			}

			fmt.Printf("✓ Order placed for %s.\n", dish)
			return nil
		},
	}
}

// bootstrap loads .env and the config file and builds the logger. The .env
// file may carry PHONE_NUMBER so the credential stays out of config.yaml.
func bootstrap() (*Config, *zap.Logger, error) {
	_ = godotenv.Load()

	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if headless {
		config.Headless = true
	}
	if debug {
		config.DebugMode = true
	}

	var log *zap.Logger
	if config.DebugMode {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return config, log, nil
}

// startEngine opens and authenticates the browser session once. A failure
// here aborts startup entirely: the system never serves requests without an
// authenticated session.
func startEngine(config *Config, log *zap.Logger) (*OrderWorkflow, *SessionManager, error) {
	sessions := NewSessionManager(config, log)
	if err := sessions.Start(); err != nil {
		sessions.Close()
		return nil, nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return NewOrderWorkflow(config, sessions, log), sessions, nil
}

func getUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./mealdash-data"
	}
	return filepath.Join(home, ".mealdash")
}
