package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"campusphere/client"
	"campusphere/config"
	"campusphere/feed"
	"campusphere/identity"
	"campusphere/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Show the public feed",
		Description: `Fetches the posts from the CampuSphere API and prints the public ones,
newest first.

With --json every visible post is printed as a JSON object on a single line.
Use a tool like jq to process the output. All other log messages go to stderr.

With --watch the feed is refreshed on an interval until interrupted.`,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print posts as JSON lines",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep refreshing the feed",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Value:   30 * time.Second,
				Usage:   "Refresh interval used with --watch",
				EnvVars: []string{"CAMPUSPHERE_REFRESH_INTERVAL"},
			},
		}, clientFlags()...),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyClientFlags(ctx, &cfg.Client)

			// Keep stdout for the feed itself
			log.SetOutput(os.Stderr)

			runCtx, stop := clientContext(ctx)
			defer stop()

			session := sessionFor(ctx)
			syncer := feed.NewSyncer(newClient(&cfg.Client))
			show := func() {
				view := syncer.View(session.Viewer(), time.Now())
				if ctx.Bool("json") {
					printJSON(os.Stdout, view)
					return
				}
				printView(os.Stdout, view)
			}

			syncer.FetchPosts(runCtx, false)
			show()
			if !ctx.Bool("watch") {
				if errMsg := syncer.State().LastError; errMsg != "" {
					return cli.Exit(errMsg, 1)
				}
				return nil
			}

			ticker := time.NewTicker(ctx.Duration("interval"))
			defer ticker.Stop()
			seen := latestID(syncer.Visible())
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
					syncer.FetchPosts(runCtx, true)
					if stopWatching(syncer.Err()) {
						show()
						return cli.Exit(syncer.State().LastError, 1)
					}
					if id := latestID(syncer.Visible()); id != seen || syncer.State().LastError != "" {
						seen = id
						show()
					}
				}
			}
		},
	}
}

func newClient(cfg *config.ClientConfig) *client.Client {
	return client.New(cfg.BaseURL, client.WithToken(cfg.Token), client.WithTimeout(cfg.Timeout))
}

// sessionFor signs the session in as --email when given
func sessionFor(ctx *cli.Context) *identity.Session {
	session := identity.NewSession()
	if email := strings.TrimSpace(ctx.String("email")); email != "" {
		session.SignIn(identity.Viewer{Email: email})
	} else {
		session.SignOut()
	}
	return session
}

// stopWatching logs a failed refresh and reports whether it will keep
// failing. Transient failures are retried on the next tick, a request the
// server rejects is not.
func stopWatching(err error) bool {
	if err == nil {
		return false
	}
	fields := log.Fields{"error": err}
	if client.IsRetryable(err) {
		log.WithFields(fields).Warn("Refresh failed, retrying on the next interval")
		return false
	}
	if status := client.StatusCode(err); status >= 400 && status < 500 {
		fields["status"] = status
		log.WithFields(fields).Error("Refresh rejected by the server, stopping")
		return true
	}
	log.WithFields(fields).Error("Refresh failed")
	return false
}

func latestID(posts []models.Post) models.PostID {
	if len(posts) == 0 {
		return ""
	}
	return posts[0].ID
}

func printView(w io.Writer, view feed.View) {
	if view.Error != "" {
		fmt.Fprintf(w, "! %s\n\n", view.Error)
	}
	if view.Empty {
		fmt.Fprintln(w, view.EmptyMessage)
		return
	}
	for _, item := range view.Items {
		name := item.Author.DisplayName
		if item.Author.IsViewer {
			name += " (you)"
		}
		fmt.Fprintf(w, "%s · %s\n", name, item.TimeLabel)
		fmt.Fprintln(w, item.Post.Content)
		if item.Post.HasImage() {
			fmt.Fprintf(w, "[image] %s\n", *item.Post.ImageURL)
		}
		fmt.Fprintln(w)
	}
}

func printJSON(w io.Writer, view feed.View) {
	for _, item := range view.Items {
		// Print as single JSON string on a single line
		data, err := json.Marshal(item.Post)
		if err != nil {
			log.WithFields(log.Fields{"id": item.Post.ID, "error": err}).Error("Failed to marshal post")
			continue
		}
		fmt.Fprintln(w, string(data))
	}
}
