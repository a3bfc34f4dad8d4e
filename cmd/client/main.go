// Package main is the ekreader terminal client: login and session handling,
// catalog browsing, and the offline book store.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Emperor-Koala/ekreader/internal/client/catalog"
	"github.com/Emperor-Koala/ekreader/internal/client/credstore"
	"github.com/Emperor-Koala/ekreader/internal/client/offline"
	"github.com/Emperor-Koala/ekreader/internal/client/session"
	"github.com/Emperor-Koala/ekreader/internal/config"
	"github.com/Emperor-Koala/ekreader/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// app bundles the wired-up components the commands operate on.
type app struct {
	opts    *config.Options
	log     *zap.Logger
	creds   *credstore.FileStore
	session *session.Manager
	catalog *catalog.Client
	offline *offline.Store
}

var (
	cfgFile string
	cli     *app
)

// setup wires config → logger → credential store → session → catalog and
// offline stores, in that order.
func setup() error {
	opts, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New()
	if err := log.Init(opts.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	creds, err := credstore.NewFileStore(opts.DataDir)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}

	manager := session.NewManager(session.Config{
		Store:          creds,
		Log:            log.Log,
		LoginTimeout:   opts.LoginTimeout,
		RequestTimeout: opts.RequestTimeout,
	})

	books, err := offline.NewStore(filepath.Join(opts.DataDir, "books"), manager.Client(), creds, log.Log)
	if err != nil {
		return fmt.Errorf("open offline store: %w", err)
	}

	cli = &app{
		opts:    opts,
		log:     log.Log,
		creds:   creds,
		session: manager,
		catalog: catalog.New(manager.Client(), creds),
		offline: books,
	}
	return nil
}

// readLine prompts on stdout and reads one trimmed line from stdin.
func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// readPassword reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <server-url>",
		Short: "Sign in to a server and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := readLine("Email: ")
			if err != nil {
				return err
			}
			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}

			user, err := cli.session.Login(cmd.Context(), strings.TrimRight(args[0], "/"), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Printf("Signed in as %s (%s)\n", user.Email, strings.Join(user.Roles, ", "))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := cli.session.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Println("Not logged in")
				return nil
			}
			fmt.Printf("%s (%s)\n", user.Email, strings.Join(user.Roles, ", "))
			return nil
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:           "ekreader",
		Short:         "Terminal client for a Komga digital library",
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setup()
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newLibrariesCmd(),
		newSeriesCmd(),
		newBooksCmd(),
		newBookCmd(),
		newDownloadCmd(),
		newOfflineCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
