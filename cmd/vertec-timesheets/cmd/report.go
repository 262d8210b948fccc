package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/vertec-tools/timesheets/vertec"
)

func init() {
	rootCmd.AddCommand(reportCmd)

	flags := reportCmd.Flags()
	flags.IntP("months", "m", 2, "trailing booking window in whole calendar months")
	flags.Bool("all", false, "include inactive users")
	flags.Bool("save", false, "persist resolved endpoint and username to the config file")
	flags.Bool("save-password", false, "also persist the password (implies --save)")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	viper.BindPFlag("months", flags.Lookup("months"))
	viper.BindPFlag("all", flags.Lookup("all"))
	viper.BindPFlag("save", flags.Lookup("save"))
	viper.BindPFlag("save_password", flags.Lookup("save-password"))
	viper.BindPFlag("insecure", flags.Lookup("insecure"))
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print day-by-day timesheets for your managed users",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd)
		cobra.CheckErr(err)

		if viper.GetBool("save") || viper.GetBool("save_password") {
			saved := *cfg
			if !viper.GetBool("save_password") {
				saved.Password = ""
			}
			path := viper.GetString("config_file")
			if err := saved.Save(path); err != nil {
				slog.Error("saving config file", "path", path, "error", err)
				os.Exit(1)
			}
			slog.Info("saved config file", "path", path)
		}

		var options []vertec.ClientOption
		if viper.GetBool("insecure") {
			options = append(options, vertec.WithInsecureSkipVerify())
		}
		client := vertec.NewClient(cfg.Endpoint, options...)
		defer client.Close()

		reporter := &vertec.Reporter{
			Client:          client,
			Out:             cmd.OutOrStdout(),
			Months:          viper.GetInt("months"),
			IncludeInactive: viper.GetBool("all"),
		}

		if err := reporter.Run(cmd.Context(), cfg.Username, cfg.Password); err != nil {
			var fault *vertec.Fault
			if errors.As(err, &fault) {
				for _, detail := range fault.Details {
					slog.Error("fault detail", "detail", detail)
				}
			}
			slog.Error("report failed", "error", err)
			os.Exit(1)
		}
	},
}

// resolveConfig merges the config file, environment and interactive prompts
// in that order of increasing precedence for the environment, with prompts
// only filling what is still missing.
func resolveConfig(cmd *cobra.Command) (*vertec.Config, error) {
	cfg := &vertec.Config{}

	path := viper.GetString("config_file")
	if loaded, err := vertec.LoadConfigFile(path); err == nil {
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring config file", "path", path, "error", err)
	}

	if v := viper.GetString("url"); v != "" {
		cfg.Endpoint = v
	}
	if v := viper.GetString("username"); v != "" {
		cfg.Username = v
	}
	if v := viper.GetString("password"); v != "" {
		cfg.Password = v
	}

	if cfg.Endpoint == "" {
		v, err := promptLine(cmd, "Vertec url (format: 'https://...'): ")
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = v
	}
	if cfg.Username == "" {
		v, err := promptLine(cmd, "Vertec username: ")
		if err != nil {
			return nil, err
		}
		cfg.Username = v
	}
	if cfg.Password == "" {
		v, err := promptPassword(cmd, fmt.Sprintf("Vertec password for %q: ", cfg.Username))
		if err != nil {
			return nil, err
		}
		cfg.Password = string(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	return pass, err
}
