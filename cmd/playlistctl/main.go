// Command playlistctl edits an experience playlist through the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/client"
	"github.com/sendrec/videoexp/internal/editor"
	"github.com/sendrec/videoexp/internal/embedurl"
)

const usage = `Usage: %s [flags] <command> [args]

Commands:
  show                   print the playlist
  set-title TITLE        change the playlist title
  set-subtitle TEXT      change the playlist subtitle
  add URL                append a YouTube or Loom video
  rename ID TITLE        rename a video
  set-url ID URL         point a video at another link
  delete ID              remove a video
  stored                 list stored experience documents
  purge                  delete the stored document for the experience

Flags:
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("playlistctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		flagServer      string
		flagExperience  string
		flagToken       string
		flagTokenSecret string
		flagUser        string
		flagTokenHeader string
		flagTimeout     time.Duration
		flagVerbose     bool
	)
	fs.StringVar(&flagServer, "server", envOr("VIDEOEXP_SERVER", "http://localhost:8080"), "Server base URL")
	fs.StringVar(&flagExperience, "experience", os.Getenv("VIDEOEXP_EXPERIENCE"), "Experience id")
	fs.StringVar(&flagToken, "token", os.Getenv("VIDEOEXP_TOKEN"), "Host user token")
	fs.StringVar(&flagTokenSecret, "token-secret", os.Getenv("VIDEOEXP_TOKEN_SECRET"), "Sign a token for -user with this HS256 secret when -token is empty (development servers)")
	fs.StringVar(&flagUser, "user", envOr("VIDEOEXP_USER", auth.DevUserID), "User id for a signed token")
	fs.StringVar(&flagTokenHeader, "token-header", auth.DefaultTokenHeader, "Header carrying the user token")
	fs.DurationVar(&flagTimeout, "timeout", 30*time.Second, "Overall timeout (e.g., 30s, 1m)")
	fs.BoolVar(&flagVerbose, "v", false, "Log save status changes")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, usage, "playlistctl")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) < 1 || flagExperience == "" {
		fs.Usage()
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	token := flagToken
	if token == "" && flagTokenSecret != "" {
		signed, err := auth.SignToken(flagTokenSecret, flagUser, flagTimeout+time.Minute)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: sign token: %v\n", err)
			return 1
		}
		token = signed
	}

	c := client.New(client.Config{BaseURL: flagServer, Token: token, TokenHeader: flagTokenHeader})
	cmd := &command{
		client:       c,
		experienceID: flagExperience,
		stdout:       stdout,
		logger:       logger,
	}

	err := cmd.dispatch(ctx, rest[0], rest[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		fs.Usage()
		return 2
	case client.IsAccessDenied(err):
		_, _ = fmt.Fprintln(stderr, "Admin access required")
		return 1
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

var (
	errUsage      = errors.New("invalid usage")
	errLoadFailed = errors.New("could not read the stored playlist, nothing was changed")
)

type command struct {
	client       *client.Client
	experienceID string
	stdout       io.Writer
	logger       *slog.Logger
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s takes %d argument(s)", errUsage, name, n)
		}
		return nil
	}

	switch name {
	case "show":
		if err := need(0); err != nil {
			return err
		}
		return c.show(ctx)
	case "stored":
		if err := need(0); err != nil {
			return err
		}
		files, err := c.client.ListStored(ctx, c.experienceID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.stdout, "Found %d stored experience files\n", len(files))
		for _, f := range files {
			_, _ = fmt.Fprintln(c.stdout, f)
		}
		return nil
	case "purge":
		if err := need(0); err != nil {
			return err
		}
		if err := c.client.DeleteStored(ctx, c.experienceID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.stdout, "Deleted stored data for experience: %s\n", c.experienceID)
		return nil
	case "set-title":
		if err := need(1); err != nil {
			return err
		}
		return c.edit(ctx, func(e *editor.Coordinator) error { return e.SetTitle(args[0]) })
	case "set-subtitle":
		if err := need(1); err != nil {
			return err
		}
		return c.edit(ctx, func(e *editor.Coordinator) error { return e.SetSubtitle(args[0]) })
	case "add":
		if err := need(1); err != nil {
			return err
		}
		return c.edit(ctx, func(e *editor.Coordinator) error {
			v, err := e.AddVideo(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "Added %s (%s)\n", v.ID, v.URL)
			return nil
		})
	case "rename":
		if err := need(2); err != nil {
			return err
		}
		return c.edit(ctx, func(e *editor.Coordinator) error { return e.RenameVideo(args[0], args[1]) })
	case "set-url":
		if err := need(2); err != nil {
			return err
		}
		return c.edit(ctx, func(e *editor.Coordinator) error { return e.EditVideoURL(args[0], args[1]) })
	case "delete":
		if err := need(1); err != nil {
			return err
		}
		return c.edit(ctx, func(e *editor.Coordinator) error {
			deleted, err := e.DeleteVideo(args[0])
			if err != nil {
				return err
			}
			if !deleted {
				_, _ = fmt.Fprintf(c.stdout, "No video with id %s\n", args[0])
			}
			return nil
		})
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func (c *command) show(ctx context.Context) error {
	coord := editor.New(c.client, c.experienceID, editor.Options{Logger: c.logger})
	defer coord.Close()
	if coord.Load(ctx) == editor.FromDefaults {
		c.logger.Info("showing default playlist")
	}

	p := coord.State()
	_, _ = fmt.Fprintln(c.stdout, p.Title)
	if p.Subtitle != "" {
		_, _ = fmt.Fprintln(c.stdout, p.Subtitle)
	}
	_, _ = fmt.Fprintln(c.stdout, strings.Repeat("-", 40))
	for i, v := range p.Videos {
		_, _ = fmt.Fprintf(c.stdout, "%d. [%s] %s (%s)\n   %s (%s %s)\n",
			i+1, v.ID, v.Title, v.Duration, embedurl.ToOriginalURL(v.URL), embedurl.ProviderOf(v.URL), embedurl.VideoID(v.URL))
	}
	if len(p.Videos) == 0 {
		_, _ = fmt.Fprintln(c.stdout, "No videos yet.")
	}
	return nil
}

// edit loads the playlist, applies one mutation in edit mode and saves it.
func (c *command) edit(ctx context.Context, mutate func(*editor.Coordinator) error) error {
	info, err := c.client.Access(ctx, c.experienceID)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}

	coord := editor.New(c.client, c.experienceID, editor.Options{Access: info.Access, Logger: c.logger})
	defer coord.Close()

	updates, stop := coord.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range updates {
			c.logger.Debug("save status", "status", s.String())
		}
	}()
	defer func() {
		stop()
		<-done
	}()

	// Every save replaces the whole document, so never edit defaults that
	// stand in for a document we failed to read.
	if coord.Load(ctx) == editor.FromDefaultsAfterError {
		return errLoadFailed
	}
	if err := coord.SetEditing(true); err != nil {
		return err
	}
	if err := mutate(coord); err != nil {
		return err
	}
	if err := coord.Flush(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.stdout, "Saved")
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
