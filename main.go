package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fairmeet/core/config"
	"fairmeet/core/logger"
	"fairmeet/core/server"
	"fairmeet/core/utils"
	"fairmeet/modules/meeting/engine"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// @title Fairmeet API
// @version 1.0
// @description Group availability resolution and fair meeting-time suggestions

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	app := &cli.App{
		Name:  "fairmeet",
		Usage: "Find meeting times that are fair to every attendee.",
		Commands: []*cli.Command{
			serveCommand(),
			workerCommand(),
			suggestCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("run error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx)
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Process calendar sync tasks.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Value: 5, Usage: "number of tasks processed in parallel"},
		},
		Action: func(c *cli.Context) error {
			return server.RunWorker(c.Context, c.Int("concurrency"))
		},
	}
}

func suggestCommand() *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Rank meeting times for a YAML or JSON snapshot without a database.",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "snapshot file, - for stdin"},
		},
		Action: func(c *cli.Context) error {
			var in io.Reader = os.Stdin
			if path := c.String("file"); path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runSuggest(in, c.App.Writer)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for a user ID (development only).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "user UUID"},
			&cli.StringFlag{Name: "email", Usage: "email claim"},
		},
		Action: func(c *cli.Context) error {
			userID, err := uuid.Parse(c.String("user"))
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			ttl := cfg.JWT.TTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			token, err := utils.GenerateToken(userID, c.String("email"), cfg.JWT.Issuer, cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

type suggestOutput struct {
	RequestKey string             `json:"request_key"`
	Candidates []engine.Candidate `json:"candidates"`
}

// runSuggest decodes an engine request from r and writes the ranked candidates to w.
func runSuggest(r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	// JSON is valid YAML
	var req engine.Request
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	candidates, err := engine.Suggest(req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(suggestOutput{
		RequestKey: engine.ComputeRequestKey(engine.ShapeOf(req)),
		Candidates: candidates,
	})
}
