package cmd

import (
	"fmt"
	"time"

	"campusphere/account"
	"campusphere/config"
	"campusphere/identity"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const tokenTTL = 24 * time.Hour

func signupCmd() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account",
		Description: `Creates your user record and uploads an optional profile image.

Missing values are asked for interactively. If the image upload or saving the
user record fails the account is still created and a warning is printed.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Full name",
			},
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Path to a profile image",
			},
		}, clientFlags()...),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyClientFlags(ctx, &cfg.Client)

			name, err := askIfEmpty(ctx.String("name"), "Full name:")
			if err != nil {
				return err
			}
			email, err := askIfEmpty(ctx.String("email"), "Email:")
			if err != nil {
				return err
			}

			runCtx, stop := clientContext(ctx)
			defer stop()

			session := identity.NewSession()
			svc := account.NewService(newClient(&cfg.Client), session)
			result, err := svc.Register(runCtx, account.RegisterRequest{
				Name:      name,
				Email:     email,
				ImagePath: ctx.String("image"),
			})
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			for _, w := range result.Warnings {
				log.Warn(w)
			}
			if len(result.Warnings) == 0 {
				fmt.Println("Account created successfully!")
			}
			if result.ImageURL != "" {
				fmt.Printf("Profile image: %s\n", result.ImageURL)
			}
			printToken(cfg, session.Viewer())
			return nil
		},
	}
}

func signinCmd() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in to an existing account",
		Description: `Looks up the user record for an email address. When an identity secret is
configured a token for the account is printed, to be passed as --token or
CAMPUSPHERE_TOKEN to the other commands.`,
		Flags: clientFlags(),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyClientFlags(ctx, &cfg.Client)

			email, err := askIfEmpty(ctx.String("email"), "Email:")
			if err != nil {
				return err
			}

			runCtx, stop := clientContext(ctx)
			defer stop()

			session := identity.NewSession()
			svc := account.NewService(newClient(&cfg.Client), session)
			user, err := svc.SignIn(runCtx, email)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			fmt.Printf("Sign in successful! Welcome back, %s\n", user.Name)
			printToken(cfg, session.Viewer())
			return nil
		},
	}
}

func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint an identity token for development",
		Description: `Signs a token for --email with the configured identity secret. Useful when
no external identity provider is running.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Email to issue the token for",
				EnvVars:  []string{"CAMPUSPHERE_EMAIL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Display name claim",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Value: tokenTTL,
				Usage: "Token lifetime",
			},
			&cli.StringFlag{
				Name:    "identity-secret",
				Usage:   "Shared secret used to sign the token",
				EnvVars: []string{"CAMPUSPHERE_IDENTITY_SECRET"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if ctx.IsSet("identity-secret") {
				cfg.Identity.Secret = ctx.String("identity-secret")
			}

			viewer := identity.Viewer{Email: ctx.String("email")}
			if name := ctx.String("name"); name != "" {
				viewer.DisplayName = &name
			}

			token, err := issueToken(&cfg.Identity, viewer, ctx.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func issueToken(cfg *config.IdentityConfig, viewer identity.Viewer, ttl time.Duration) (string, error) {
	issuer, err := identity.NewIssuer(cfg.Secret, cfg.Issuer, cfg.Audience)
	if err != nil {
		return "", err
	}
	return issuer.Issue(viewer, ttl)
}

// printToken prints a token for viewer when the configuration can sign one
func printToken(cfg *config.Config, viewer identity.Viewer) {
	if cfg.Identity.Secret == "" || !viewer.Authenticated() {
		return
	}
	token, err := issueToken(&cfg.Identity, viewer, tokenTTL)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Failed to issue token")
		return
	}
	fmt.Printf("Token: %s\n", token)
}

func askIfEmpty(value, question string) (string, error) {
	if value != "" {
		return value, nil
	}
	return prompt.New().Ask(question).Input("")
}
