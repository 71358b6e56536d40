package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bissquit/alerty/internal/config"
	"github.com/bissquit/alerty/internal/credential"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var credentialValue string

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage secrets stored in the OS keyring",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the classifier API key",
	Long: `Store the classifier API key in the OS keyring.

The key is read from --value or, when omitted, from stdin. On a terminal
the key is prompted for without echo; piped input uses the first line.

Example:
  echo "$ANTHROPIC_API_KEY" | alerty credentials set`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		value := credentialValue
		if value == "" {
			var err error
			value, err = readCredential(cmd)
			if err != nil {
				return err
			}
		}
		if value == "" {
			return errors.New("empty credential")
		}

		store, err := openCredentials()
		if err != nil {
			return err
		}
		if err := store.Set(credential.ClassifierAPIKey, value); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Classifier API key stored.")
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the classifier API key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openCredentials()
		if err != nil {
			return err
		}
		if err := store.Delete(credential.ClassifierAPIKey); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Classifier API key removed.")
		return nil
	},
}

func openCredentials() (*credential.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return credential.Open(credential.Config{
		ServiceName:  cfg.Credentials.ServiceName,
		FileDir:      cfg.Credentials.FileDir,
		FilePassword: cfg.Credentials.FilePassword,
	})
}

// readCredential prompts without echo when stdin is a terminal and falls back
// to the first line of piped input.
func readCredential(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Classifier API key: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read credential: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	credentialsSetCmd.Flags().StringVar(&credentialValue, "value", "", "credential value (default: read from stdin)")
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsDeleteCmd)
	rootCmd.AddCommand(credentialsCmd)
}
