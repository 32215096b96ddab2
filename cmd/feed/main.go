package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.postfeed/internal/boot"
	"uk.co.dudmesh.postfeed/internal/credential"
	"uk.co.dudmesh.postfeed/internal/feed"
	"uk.co.dudmesh.postfeed/internal/image"
	"uk.co.dudmesh.postfeed/internal/model"
	"uk.co.dudmesh.postfeed/internal/notify"
	"uk.co.dudmesh.postfeed/pkg/token"
)

const usage = `usage: feed <command> [flags]

commands:
  list                                  show the feed
  create -content TEXT [-image URL]     publish a post
  edit -id ID [-content TEXT] [-image URL]
                                        change a post
  delete -id ID -yes                    delete a post
  token -name NAME [-ttl DURATION]      store a development credential
`

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}
	if err := run(context.Background(), config, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	config   *boot.Config
	creds    *credential.FileProvider
	store    *feed.Store
	notifier *notify.Notifier
	images   *image.Resolver
	out      io.Writer
}

func run(ctx context.Context, config *boot.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	creds := credential.NewFileProvider(config.CredentialPath())
	notifier := notify.New(config.Client.NoticeTTL)
	defer notifier.Close()

	a := &app{
		config:   config,
		creds:    creds,
		notifier: notifier,
		images:   image.NewResolver(config.Client.FallbackImage),
		out:      out,
		store: feed.NewFromConfig(feed.Config{
			BaseURL:            config.Client.BaseURL,
			CredentialProvider: creds,
			Timeout:            config.Client.Timeout,
		}, notifier),
	}

	if !config.IsDevelopment() {
		// failures reach the user through report
		a.store.Logger().SetLevel(log.OFF)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "list":
		return a.list(ctx)
	case "create":
		return a.create(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "token":
		return a.token(rest)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) list(ctx context.Context) error {
	if err := a.store.Load(ctx); err != nil {
		a.report()
		return err
	}
	a.render()
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	content := fs.String("content", "", "post text")
	imageURL := fs.String("image", "", "optional image URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := model.PostInput{Content: *content}
	if *imageURL != "" {
		input.ImageURL = imageURL
	}

	_, err := a.store.Create(ctx, input)
	a.report()
	return err
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	id := fs.String("id", "", "post id")
	content := fs.String("content", "", "new text, unchanged when omitted")
	imageURL := fs.String("image", "", "new image URL, unchanged when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.store.Load(ctx); err != nil {
		a.report()
		return err
	}

	postID := model.PostID(*id)
	if !a.store.BeginEdit(postID) {
		return fmt.Errorf("%w: %s", model.ErrorPostNotFound, postID)
	}
	entity, _ := a.store.Get(postID)

	// flags left unset keep the values the edit form starts with
	draft := entity.Draft()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "content":
			draft.Content = *content
		case "image":
			draft.ImageURL = imageURL
		}
	})

	_, err := a.store.Save(ctx, postID, draft)
	if err != nil {
		a.store.CancelEdit(postID)
	}
	a.report()
	return err
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "post id")
	confirmed := fs.Bool("yes", false, "confirm the deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*confirmed {
		return errors.New("refusing to delete without -yes")
	}

	if err := a.store.Load(ctx); err != nil {
		a.report()
		return err
	}
	postID := model.PostID(*id)
	if _, ok := a.store.Get(postID); !ok {
		return fmt.Errorf("%w: %s", model.ErrorPostNotFound, postID)
	}

	err := a.store.Remove(ctx, postID, *confirmed)
	a.report()
	return err
}

func (a *app) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	name := fs.String("name", "", "author name carried by the token")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime, 0 for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw, err := token.New(*name, a.config.Server.TokenSecret, *ttl)
	if err != nil {
		return fmt.Errorf("creating token: %w", err)
	}
	if err := a.creds.Store(raw); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "credential stored in %s\n", a.creds.Path())
	return nil
}

func (a *app) render() {
	posts := a.store.Posts()
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts found. Be the first to post!")
		return
	}
	for _, p := range posts {
		edited := ""
		if p.Edited() {
			edited = " (Edited)"
		}
		fmt.Fprintf(a.out, "[%s] %s\n", p.ID, p.Content)
		if src := a.images.Track(p.Image()).Source(); src != "" {
			fmt.Fprintf(a.out, "    image: %s\n", src)
		}
		fmt.Fprintf(a.out, "    posted by %s on %s%s\n", p.Author, formatTime(p.CreatedAt), edited)
	}
}

func (a *app) report() {
	msg := a.notifier.Current()
	if msg.Empty() {
		return
	}
	fmt.Fprintf(a.out, "%s: %s\n", msg.Kind, msg.Text)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Local().Format("2006-01-02 15:04")
}
