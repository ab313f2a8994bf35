// cvctl - консольный клиент конструктора резюме.
//
//	cvctl [-api URL] <command> [flags]
//
// Команды: register, login, logout, list, create, analyze, export.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/renderer"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/validator"
	"cvbuilder_backend/pkg/client"
)

const defaultAPI = "http://localhost:5000"

type app struct {
	api    *client.Client
	tokens *tokenStore
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register": cmdRegister,
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"list":     cmdList,
	"create":   cmdCreate,
	"analyze":  cmdAnalyze,
	"export":   cmdExport,
}

func main() {
	logger.InitWithWriter(os.Stderr, "production", "warn")

	global := flag.NewFlagSet("cvctl", flag.ExitOnError)
	apiURL := global.String("api", envOr("CVCTL_API", defaultAPI), "API base URL")
	timeout := global.Duration("timeout", client.DefaultTimeout, "HTTP timeout")
	global.Usage = usage
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := global.Arg(0), global.Args()[1:]
	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	tokens, err := newTokenStore()
	if err != nil {
		fail(err)
	}
	token, err := tokens.Load()
	if err != nil {
		fail(err)
	}

	a := &app{
		api:    client.New(*apiURL, client.WithToken(token), client.WithTimeout(*timeout)),
		tokens: tokens,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a, args); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = tokens.Clear()
			fail(errors.New("session expired or invalid, run: cvctl login"))
		}
		fail(err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: cvctl [-api URL] [-timeout 30s] <command> [flags]

commands:
  register -name NAME -email EMAIL -password PASS
  login    -email EMAIL -password PASS
  logout
  list
  create   -f draft.yaml
  analyze  -id CV_ID (-job TEXT | -url JOB_URL)
  export   -id CV_ID [-o out.pdf] [-chrome PATH]
`)
}

func fail(err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(os.Stderr, "error: validation failed")
		for _, f := range verr.Fields() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f, verr.Errors[f])
		}
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func requireLogin(a *app) error {
	if a.api.Token() == "" {
		return errors.New("not logged in, run: cvctl login")
	}
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	resp, err := a.api.Register(ctx, dto.RegisterRequest{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if err := a.tokens.Save(resp.Token); err != nil {
		return err
	}
	fmt.Printf("Registered %s (%s tier)\n", resp.User.Email, resp.User.SubscriptionTier)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	resp, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(resp.Token); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s, token valid until %s\n", resp.User.Email, resp.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	return a.tokens.Clear()
}

func cmdList(ctx context.Context, a *app, _ []string) error {
	if err := requireLogin(a); err != nil {
		return err
	}
	list, err := a.api.ListCVs(ctx)
	if err != nil {
		return err
	}
	if list.Count == 0 {
		fmt.Println("No CVs yet. Create one with: cvctl create -f draft.yaml")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTEMPLATE\tATS\tUPDATED")
	for _, cv := range list.CVs {
		score := "-"
		if cv.Metadata.ATSScore != nil {
			score = fmt.Sprint(*cv.Metadata.ATSScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", cv.ID, cv.Title, cv.Template, score, cv.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	file := fs.String("f", "", "draft YAML file")
	_ = fs.Parse(args)
	if *file == "" {
		return errors.New("create: -f is required")
	}
	if err := requireLogin(a); err != nil {
		return err
	}

	draft, err := loadDraft(*file)
	if err != nil {
		return err
	}
	draft, err = runWizard(draft)
	if err != nil {
		return err
	}

	cv, err := a.api.CreateCV(ctx, draft.CreateRequest())
	if err != nil {
		return err
	}
	fmt.Printf("Created CV %s (%s)\n", cv.ID, cv.Title)
	return nil
}

func cmdAnalyze(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	id := fs.String("id", "", "CV id")
	job := fs.String("job", "", "job description text")
	jobURL := fs.String("url", "", "job posting URL")
	_ = fs.Parse(args)
	if *id == "" || (*job == "" && *jobURL == "") {
		return errors.New("analyze: -id and one of -job or -url are required")
	}
	if err := requireLogin(a); err != nil {
		return err
	}

	res, err := a.api.AnalyzeCV(ctx, *id, dto.AnalyzeCVRequest{JobDescription: *job, JobURL: *jobURL})
	if err != nil {
		return err
	}
	fmt.Printf("ATS score: %d/100 (%d keywords)\n", res.ATSScore, res.TotalKeywords)
	fmt.Printf("Matched:  %s\n", strings.Join(res.KeywordMatches, ", "))
	fmt.Printf("Missing:  %s\n", strings.Join(res.MissingKeywords, ", "))
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	id := fs.String("id", "", "CV id")
	out := fs.String("o", "", "output file (default: name from server)")
	chromePath := fs.String("chrome", os.Getenv("CHROME_PATH"), "Chrome binary for local rendering")
	_ = fs.Parse(args)
	if *id == "" {
		return errors.New("export: -id is required")
	}
	if err := requireLogin(a); err != nil {
		return err
	}

	local := renderer.NewChromedpRenderer(renderer.PDFOptions{ChromePath: *chromePath, MaxConcurrent: 1})
	res, err := a.api.ExportPDF(ctx, *id, local)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = res.FileName
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return err
	}
	if res.Source == client.SourceClient {
		fmt.Fprintf(os.Stderr, "server PDF unavailable (%v), rendered locally\n", res.ServerErr)
	}
	fmt.Printf("Saved %s (%d bytes, %s)\n", path, len(res.Data), res.Source)
	return nil
}
