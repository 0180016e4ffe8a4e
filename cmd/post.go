package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"campusphere/compose"
	"campusphere/feed"
	"campusphere/models"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func postCmd() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Share a post",
		ArgsUsage: "[content]",
		Description: `Creates a post with the given content, asking for it when no argument is
given. Posts are limited to 280 characters; longer input is cut off.

The post is attributed to --email, or to "anon" when not signed in. When a
token is sent the server attributes the post to the token's email instead.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Path to an image to attach",
			},
			&cli.StringFlag{
				Name:  "visible-in",
				Value: models.VisibleInPublic,
				Usage: "Audience of the post (public or friends)",
			},
		}, clientFlags()...),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyClientFlags(ctx, &cfg.Client)

			content := strings.Join(ctx.Args().Slice(), " ")
			if strings.TrimSpace(content) == "" {
				content, err = prompt.New().Ask("What's on your mind?").Input("")
				if err != nil {
					return err
				}
			}

			runCtx, stop := clientContext(ctx)
			defer stop()

			api := newClient(&cfg.Client)
			session := sessionFor(ctx)

			composer := compose.NewComposer(api, session)
			composer.SetContent(content)
			composer.AttachImage(ctx.String("image"))
			composer.SetVisibility(ctx.String("visible-in"))

			if utf8.RuneCountInString(content) > models.MaxContentLength {
				log.WithFields(log.Fields{"limit": models.MaxContentLength}).Warn("Content was cut off at the character limit")
			}

			post, err := composer.Submit(runCtx)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Printf("Post created (id %s)\n\n", post.ID)

			// Back to the feed, which now includes the new post
			syncer := feed.NewSyncer(api)
			syncer.FetchPosts(runCtx, true)
			printView(os.Stdout, syncer.View(session.Viewer(), time.Now()))
			return nil
		},
	}
}
