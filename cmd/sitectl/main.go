// Утилита sitectl — консольный клиент API сайта подписок поверх
// клиентского SDK: вход и выход, просмотр постов и подписчиков,
// подписка на рассылку и оформление тарифа.
//
// Refresh-токен переживает перезапуск: состояние сессии хранится
// в JSON-файле, путь задаётся флагом -state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/magabrotheeeer/subscription-site/internal/client/data"
	"github.com/magabrotheeeer/subscription-site/internal/client/query"
	"github.com/magabrotheeeer/subscription-site/internal/client/rest"
	"github.com/magabrotheeeer/subscription-site/internal/client/token"
)

const usage = `usage: sitectl [flags] <command> [args]

commands:
  login <username> <password>   войти в админ-панель
  logout                        выйти и отозвать refresh-токены
  me                            показать текущего пользователя
  posts [-all]                  список постов (по умолчанию опубликованные)
  post <id>                     показать пост
  subscribers [-inactive]       список подписчиков (только для admin)
  subscribe <email> <name>      подписаться на рассылку
  plan <email> <name> <plan>    оформить платный тариф

admin commands:
  post-create [-publish] <title> <content>          создать пост
  post-edit [-title t] [-content c] [-publish b] <id>  изменить пост
  post-delete <id>                                  удалить пост
  sub-toggle <id> <on|off>                          включить/выключить подписчика
  sub-edit [-name n] [-plan p] <id>                 изменить подписчика
  sub-delete <id>                                   удалить подписчика

flags:
  -api    базовый URL API (по умолчанию http://localhost:8080/api/v1)
  -state  файл состояния сессии (по умолчанию ~/.sitectl.json)
`

type cli struct {
	session     *data.Session
	posts       *data.Posts
	subscribers *data.Subscribers
	api         *rest.Client
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api/v1", "базовый URL API")
	statePath := flag.String("state", defaultStatePath(), "файл состояния сессии")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	tokens := token.New(*statePath, logger)
	apiClient := rest.NewClient(rest.Config{BaseURL: *apiURL}, tokens, logger,
		rest.WithAuthFailureHandler(func() {
			fmt.Fprintln(os.Stderr, "session expired, run `sitectl login` again")
		}),
	)
	cache := query.New(logger, query.DefaultOptions())
	notify := &data.LogNotifier{Log: logger}

	app := &cli{
		session:     data.NewSession(cache, apiClient, notify, logger),
		posts:       data.NewPosts(cache, apiClient, notify, logger),
		subscribers: data.NewSubscribers(cache, apiClient, notify, logger),
		api:         apiClient,
	}

	if err := app.run(context.Background(), args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("login requires <username> <password>")
		}
		user, err := c.session.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (%s)\n", user.Username, user.Role)
		return nil

	case "logout":
		if err := c.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "me":
		user, err := c.session.CurrentUser(ctx)
		if err != nil {
			return err
		}
		return printJSON(user)

	case "posts":
		fs := flag.NewFlagSet("posts", flag.ExitOnError)
		all := fs.Bool("all", false, "включая черновики (только для admin)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var published *bool
		if !*all {
			published = rest.Bool(true)
		}
		list, err := c.posts.List(ctx, published)
		if err != nil {
			return err
		}
		for _, post := range list.Posts {
			fmt.Printf("%s  %-40s  published=%v\n", post.ID, post.Title, post.Published)
		}
		fmt.Printf("total: %d\n", list.Total)
		return nil

	case "post":
		if len(args) != 1 {
			return fmt.Errorf("post requires <id>")
		}
		post, err := c.posts.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(post)

	case "subscribers":
		fs := flag.NewFlagSet("subscribers", flag.ExitOnError)
		inactive := fs.Bool("inactive", false, "только отписавшиеся")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var params *rest.ListSubscribersParams
		if *inactive {
			params = &rest.ListSubscribersParams{IsActive: rest.Bool(false)}
		}
		list, err := c.subscribers.List(ctx, params)
		if err != nil {
			return err
		}
		for _, sub := range list.Subscribers {
			fmt.Printf("%s  %-30s  %-10s  active=%v\n", sub.ID, sub.Email, sub.PlanID, sub.IsActive)
		}
		fmt.Printf("total: %d\n", list.Total)
		return nil

	case "subscribe":
		if len(args) != 2 {
			return fmt.Errorf("subscribe requires <email> <name>")
		}
		sub, err := c.subscribers.Create(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(sub)

	case "plan":
		if len(args) != 3 {
			return fmt.Errorf("plan requires <email> <name> <plan>")
		}
		req := rest.CreateSubscriptionRequest{
			Email:  args[0],
			Name:   args[1],
			PlanID: args[2],
		}
		if req.PlanID != "free" {
			req.PaymentDetails = &rest.PaymentDetails{StripeToken: "tok_simulated"}
		}
		resp, err := c.api.CreateSubscription(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "post-create":
		fs := flag.NewFlagSet("post-create", flag.ExitOnError)
		publish := fs.Bool("publish", false, "опубликовать сразу, а не черновиком")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 2 {
			return fmt.Errorf("post-create requires <title> <content>")
		}
		post, err := c.posts.Create(ctx, createPostRequest(fs.Arg(0), fs.Arg(1), *publish))
		if err != nil {
			return err
		}
		return printJSON(post)

	case "post-edit":
		fs := flag.NewFlagSet("post-edit", flag.ExitOnError)
		title := fs.String("title", "", "новый заголовок")
		content := fs.String("content", "", "новый текст в markdown")
		publish := fs.Bool("publish", false, "опубликовать (true) или убрать в черновики (false)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("post-edit requires <id>")
		}
		req := updatePostRequest(fs, title, content, publish)
		if req == (rest.UpdatePostRequest{}) {
			return fmt.Errorf("post-edit: nothing to change, pass -title, -content or -publish")
		}
		post, err := c.posts.Update(ctx, fs.Arg(0), req)
		if err != nil {
			return err
		}
		return printJSON(post)

	case "post-delete":
		if len(args) != 1 {
			return fmt.Errorf("post-delete requires <id>")
		}
		if err := c.posts.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil

	case "sub-toggle":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return fmt.Errorf("sub-toggle requires <id> <on|off>")
		}
		sub, err := c.subscribers.SetActive(ctx, args[0], args[1] == "on")
		if err != nil {
			return err
		}
		return printJSON(sub)

	case "sub-edit":
		fs := flag.NewFlagSet("sub-edit", flag.ExitOnError)
		name := fs.String("name", "", "новое имя")
		plan := fs.String("plan", "", "новый тариф (free, monthly, yearly)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("sub-edit requires <id>")
		}
		var req rest.UpdateSubscriberRequest
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				req.Name = name
			case "plan":
				req.PlanID = plan
			}
		})
		if req == (rest.UpdateSubscriberRequest{}) {
			return fmt.Errorf("sub-edit: nothing to change, pass -name or -plan")
		}
		sub, err := c.subscribers.Update(ctx, fs.Arg(0), req)
		if err != nil {
			return err
		}
		return printJSON(sub)

	case "sub-delete":
		if len(args) != 1 {
			return fmt.Errorf("sub-delete requires <id>")
		}
		if err := c.subscribers.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func createPostRequest(title, content string, publish bool) rest.CreatePostRequest {
	req := rest.CreatePostRequest{Title: title, Content: content}
	if publish {
		req.Published = rest.Bool(true)
	}
	return req
}

// updatePostRequest собирает запрос только из явно переданных флагов:
// непереданный флаг не должен затирать поле поста своим нулевым значением.
func updatePostRequest(fs *flag.FlagSet, title, content *string, publish *bool) rest.UpdatePostRequest {
	var req rest.UpdatePostRequest
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			req.Title = title
		case "content":
			req.Content = content
		case "publish":
			req.Published = publish
		}
	})
	return req
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sitectl.json"
	}
	return filepath.Join(home, ".sitectl.json")
}
