package cmd

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"firestige.xyz/spamprint/internal/account"
)

// passwordReader prompts for a secret without echoing it.
type passwordReader func(prompt string) (string, error)

var readPassword passwordReader = readTerminalPassword

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate account key material from a passphrase",
	Long: `Prompt twice for a passphrase and print the "salt,key" pair to register with
a server and to put in the accounts file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return succeed(runGenkey(cmd.OutOrStdout(), cmd.ErrOrStderr(), readPassword, rand.Reader))
	},
}

func readTerminalPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(b), nil
}

func runGenkey(out, errOut io.Writer, read passwordReader, random io.Reader) (bool, error) {
	p1, err := read("Enter passphrase: ")
	if err != nil {
		return false, err
	}
	p2, err := read("Enter passphrase again: ")
	if err != nil {
		return false, err
	}
	if p1 != p2 {
		fmt.Fprintln(errOut, "Passwords do not match.")
		return false, nil
	}

	ks, err := account.GenerateKeystuff(p1, random)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(out, "salt,key:")
	fmt.Fprintln(out, ks.String())
	return true, nil
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
}
