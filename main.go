package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/cmsfix/https-migrator/internal/audit"
	"github.com/cmsfix/https-migrator/internal/cms"
	"github.com/cmsfix/https-migrator/internal/config"
	"github.com/cmsfix/https-migrator/internal/migrate"
	"github.com/cmsfix/https-migrator/internal/prompt"
	"github.com/cmsfix/https-migrator/internal/tree"
	"github.com/cmsfix/https-migrator/tools"
)

const (
	version     = "0.3.1"
	serverName  = "https-migrator"
	description = "Finds 'http://' in DatoCMS records and rewrites it to 'https://', one confirmed record at a time"
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdin, os.Stdout, os.Stderr))
}

// app carries the process environment so commands can run against fakes in tests
type app struct {
	getenv func(string) string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// progress goes to stdout, diagnostics to stderr
	progress *log.Logger
	diag     *log.Logger

	configPath string
	auditIndex string
	dryRun     bool
}

// run executes the command line and returns the process exit code
func run(args []string, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		getenv:   getenv,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		progress: log.New(stdout, "", 0),
		diag:     log.New(stderr, "", log.LstdFlags),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var cfgErr *config.Error
		switch {
		case errors.As(err, &cfgErr):
			fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		case errors.Is(err, errMigrationFailed):
			// already reported
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

var errMigrationFailed = errors.New("migration failed")

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serverName,
		Short:         description,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.migrate(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML settings file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&a.auditIndex, "audit-index", "", "directory of the audit journal")
	root.Flags().BoolVar(&a.dryRun, "dry-run", false, "report findings without asking or updating")

	root.AddCommand(a.scanCommand(), a.mcpCommand())
	return root
}

// migrate is the interactive run over every record of the configured model
func (a *app) migrate(ctx context.Context) error {
	cfg, err := config.Load(a.getenv, a.configPath)
	if err != nil {
		return err
	}
	if a.dryRun {
		cfg.DryRun = true
	}
	if a.auditIndex != "" {
		cfg.AuditIndex = a.auditIndex
	}

	client := cms.NewClient(cfg.APIToken,
		cms.WithBaseURL(cfg.BaseURL),
		cms.WithEnvironment(cfg.Environment),
	)

	session := prompt.NewSession(a.stdin, a.stdout)
	defer session.Close()

	if f, ok := a.stdin.(*os.File); ok && !cfg.DryRun && !prompt.IsTerminal(f) {
		a.diag.Printf("Warning: standard input is not a terminal, answers are read from it line by line")
	}

	m := &migrate.Migrator{
		Source:   client,
		Store:    client,
		Gate:     session,
		Logger:   a.progress,
		ModelID:  cfg.ModelID,
		PageSize: cfg.PageSize,
		DryRun:   cfg.DryRun,
	}

	if cfg.AuditIndex != "" {
		journal, err := audit.Open(cfg.AuditIndex)
		if err != nil {
			a.diag.Printf("Warning: audit journal unavailable: %v", err)
		} else {
			defer func() {
				if err := journal.Close(); err != nil {
					a.diag.Printf("Error closing audit journal: %v", err)
				}
			}()
			m.Journal = journal
			a.diag.Printf("✓ Audit journal: %s (run %s)", journal.Dir(), journal.RunID())
		}
	}

	sum, err := m.Run(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error updating records: %v\n", err)
		return errMigrationFailed
	}

	a.diag.Printf("✓ %d records: %d updated, %d skipped, %d dry run, %d clean",
		sum.Total, sum.Updated, sum.Skipped, sum.DryRun, sum.Clean)
	return nil
}

// scanCommand previews a JSON document offline
func (a *app) scanCommand() *cobra.Command {
	var rewrite bool

	cmd := &cobra.Command{
		Use:   "scan FILE",
		Short: "List 'http://' occurrences in a JSON document ('-' reads standard input)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(a.stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			doc, err := tree.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			occurrences := tree.Scan(doc, "")
			if len(occurrences) == 0 {
				a.progress.Printf("No 'http://' found in %s", args[0])
			} else {
				a.progress.Printf("Found %d 'http://' occurrences in %s", len(occurrences), args[0])
				for _, occ := range occurrences {
					a.progress.Printf("  Path: %s", occ.Path)
					a.progress.Printf("  Value: %s", occ.Value)
				}
			}

			if !rewrite {
				return nil
			}
			out, err := tree.Rewrite(doc).MarshalJSON()
			if err != nil {
				return fmt.Errorf("encode %s: %w", args[0], err)
			}
			fmt.Fprintln(a.stdout, string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rewrite, "rewrite", false, "print the rewritten document after the findings")
	return cmd
}

// mcpCommand serves the scan, rewrite and journal tools over stdio
func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on standard input and output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// MCP uses stdout for protocol
			a.diag.Printf("%s v%s starting MCP server...", serverName, version)

			auditIndex := a.auditIndex
			if auditIndex == "" && a.configPath != "" {
				s, err := config.LoadSettings(a.configPath)
				if err != nil {
					return err
				}
				auditIndex = s.AuditIndex
			}

			server := createMCPServer(auditIndex)
			a.diag.Printf("✓ Server ready and waiting for connections")

			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

// createMCPServer initializes the MCP server with every tool registered
func createMCPServer(auditIndex string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil, // Default options
	)

	tools.RegisterRewriteTools(server)
	if auditIndex != "" {
		tools.RegisterJournalTools(server, auditIndex)
		log.Printf("✓ Audit journal search enabled: %s", auditIndex)
	}

	return server
}
