// Command riskctl is a terminal client for the contract risk analysis backend. It
// keeps a single signed-in session on disk.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/app"
	"contractrisk/internal/config"
	"contractrisk/internal/pkg/jwtutil"
	"contractrisk/internal/session"
)

const (
	sessionID = "default"
	usageText = `usage: riskctl [-state-dir <dir>] <command> [args]

commands:
  login -u <username>            sign in (password and emailed OTP are prompted)
  logout                         sign out
  whoami                         show the signed-in profile
  contracts                      list uploaded contracts
  upload <file.pdf>              upload a contract for analysis
  show <id>                      show a contract's analysis
  report <id> [-o <file>]        download the PDF report
  delete <id>                    delete a contract
  chat [-contract <id>] <text>   ask a question (general assistant without -contract)
  clear-chat [-contract <id>]    start a new conversation
  usage                          show plan usage`
)

// stderrNotifier prints guard notices; a scheduled redirect becomes a hint.
type stderrNotifier struct {
	w       io.Writer
	expired bool
}

func (n *stderrNotifier) Notify(level, message string) {
	fmt.Fprintf(n.w, "[%s] %s\n", level, message)
}

func (n *stderrNotifier) ScheduleRedirect(path string, _ time.Duration) {
	n.expired = true
	if path == "/login" {
		fmt.Fprintln(n.w, "run `riskctl login` to sign in again")
	}
}

type cli struct {
	cfg       *config.Config
	sess      *session.Session
	api       *apiclient.Client
	notifier  *stderrNotifier
	auth      *app.AuthService
	contracts *app.ContractService
	chat      *app.ChatService
	account   *app.AccountService
	in        *bufio.Reader
	out       io.Writer
}

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	global := flag.NewFlagSet("riskctl", flag.ContinueOnError)
	global.SetOutput(os.Stderr)
	stateDir := global.String("state-dir", defaultStateDir(), "directory holding the saved session")
	global.Usage = func() { fmt.Fprintln(os.Stderr, usageText) }
	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	args := global.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := newCLI(ctx, *stateDir, args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "riskctl:", err)
		os.Exit(1)
	}
	runErr := c.run(ctx, args[0], args[1:])
	if err := c.sess.Save(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "riskctl: save session failed:", err)
	}
	if runErr != nil {
		if !c.notifier.expired && !errors.Is(runErr, apiclient.ErrForbidden) {
			fmt.Fprintln(os.Stderr, "riskctl:", message(runErr))
		}
		os.Exit(1)
	}
}

func newCLI(ctx context.Context, stateDir, command string) (*cli, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	backend, err := session.NewFileBackend(stateDir)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(ctx, backend, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Discarded() != nil {
		fmt.Fprintln(os.Stderr, "riskctl: stored session was unreadable and has been reset")
	}

	view := "/cli/" + command
	if command == "login" {
		view = "/login"
	}
	notifier := &stderrNotifier{w: os.Stderr}
	guard := apiclient.NewExpiryGuard(sess, notifier, func() string { return view }, "/login", 0)
	api := apiclient.New(cfg.APIBaseURL(), sess, apiclient.WithResponseHook(guard), apiclient.WithUserAgent("riskctl"))

	return &cli{
		cfg:       cfg,
		sess:      sess,
		api:       api,
		notifier:  notifier,
		auth:      app.NewAuthService(app.NopPublisher{}, slog.Default()),
		contracts: app.NewContractService(cfg.Upload.MaxBytes),
		chat:      app.NewChatService(),
		account:   app.NewAccountService(),
		in:        bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}, nil
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.login(ctx, args)
	case "logout":
		c.auth.Logout(ctx, c.sess, c.api)
		fmt.Fprintln(c.out, "Signed out.")
		return nil
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, usageText)
		return nil
	}

	// Everything else needs a credential; without one nothing is sent.
	if !c.sess.LoggedIn() {
		return errors.New("not signed in; run `riskctl login -u <username>`")
	}
	switch command {
	case "whoami":
		return c.whoami(ctx)
	case "contracts":
		return c.list(ctx)
	case "upload":
		return c.upload(ctx, args)
	case "show":
		return c.show(ctx, args)
	case "report":
		return c.report(ctx, args)
	case "delete":
		return c.remove(ctx, args)
	case "chat":
		return c.ask(ctx, args)
	case "clear-chat":
		return c.clearChat(args)
	case "usage":
		return c.usage(ctx)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return errors.New("login needs -u <username>")
	}
	password, err := c.prompt("Password: ")
	if err != nil {
		return err
	}
	if err := c.auth.StartLogin(ctx, c.sess, c.api, *username, password); err != nil {
		return err
	}
	otp, err := c.prompt("OTP sent to your email. Code: ")
	if err != nil {
		return err
	}
	if err := c.auth.VerifyLogin(ctx, c.sess, c.api, otp); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Login Successful!")
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	profile, err := c.account.Profile(ctx, c.api)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s>", profile.Username, profile.Email)
	if profile.Role != "" {
		fmt.Fprintf(c.out, " role=%s", profile.Role)
	}
	fmt.Fprintln(c.out)
	if claims, err := jwtutil.Peek(c.sess.Token()); err == nil && !claims.ExpiresAt.IsZero() {
		fmt.Fprintf(c.out, "token expires %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (c *cli) list(ctx context.Context) error {
	contracts, err := c.contracts.List(ctx, c.api)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		fmt.Fprintln(c.out, "No contracts yet. Upload one with `riskctl upload <file.pdf>`.")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tUPLOADED\tRISK")
	for _, ct := range contracts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ct.ID, ct.Filename, ct.UploadDate, ct.RiskLevel)
	}
	return tw.Flush()
}

func (c *cli) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("upload needs exactly one file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(c.out, "Analyzing contract...")
	contract, err := c.contracts.Upload(ctx, c.api, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Upload Complete! id=%s\n", contract.ID)
	return nil
}

func (c *cli) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("show needs a contract id")
	}
	details, err := c.contracts.Details(ctx, c.api, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (uploaded %s)\n", details.Contract.Filename, details.Contract.UploadDate)
	a := details.Analysis
	if a == nil {
		fmt.Fprintln(c.out, "No analysis is available for this contract yet.")
		return nil
	}
	fmt.Fprintf(c.out, "Risk score %d (%s)\n\n%s\n", a.RiskScore, details.Severity, a.Summary)
	if len(a.KeyRisks) > 0 {
		fmt.Fprintln(c.out, "\nKey risks:")
		for _, r := range a.KeyRisks {
			fmt.Fprintf(c.out, "  [%s] %s: %s\n", r.Severity, r.Clause, r.RiskExplanation)
		}
	}
	printList(c.out, "Missing clauses", a.MissingClauses)
	printList(c.out, "Recommendations", a.Recommendations)
	return nil
}

func (c *cli) report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	outPath := fs.String("o", "", "output file")
	if err := fs.Parse(reorder(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("report needs a contract id")
	}
	id := fs.Arg(0)
	if *outPath == "" {
		*outPath = "Analysis_Report_" + id + ".pdf"
	}

	tmp := *outPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := c.contracts.Report(ctx, c.api, id, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, *outPath); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Report downloaded successfully! %s (%d bytes)\n", *outPath, n)
	return nil
}

func (c *cli) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("delete needs a contract id")
	}
	if err := c.contracts.Delete(ctx, c.api, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Contract deleted.")
	return nil
}

func (c *cli) ask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	contractID := fs.String("contract", "", "contract id; empty for the general assistant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := strings.Join(fs.Args(), " ")
	answer, err := c.chat.Ask(ctx, c.sess, c.api, scopeOf(*contractID), question)
	if errors.Is(err, app.ErrEmptyQuestion) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, answer.Response)
	return nil
}

func (c *cli) clearChat(args []string) error {
	fs := flag.NewFlagSet("clear-chat", flag.ContinueOnError)
	contractID := fs.String("contract", "", "contract id; empty for the general assistant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.chat.Clear(c.sess, scopeOf(*contractID))
	fmt.Fprintln(c.out, "Started a new conversation.")
	return nil
}

func (c *cli) usage(ctx context.Context) error {
	u, err := c.account.Usage(ctx, c.api)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d of %d analyses used, %d remaining", u.Used, u.Limit, u.Remaining)
	if u.ResetsAt != "" {
		fmt.Fprintf(c.out, " (resets %s)", u.ResetsAt)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func scopeOf(contractID string) string {
	if strings.TrimSpace(contractID) == "" {
		return session.GeneralScope
	}
	return contractID
}

// reorder moves flags ahead of positional arguments so `report <id> -o f` works.
func reorder(args []string) []string {
	var flags, rest []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		rest = append(rest, args[i])
	}
	return append(flags, rest...)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func message(err error) string {
	msg := app.UserMessage(err)
	if msg == apiclient.GenericMessage && !isAPIError(err) {
		return err.Error()
	}
	return msg
}

func isAPIError(err error) bool {
	var apiErr *apiclient.Error
	return errors.As(err, &apiErr)
}

func defaultStateDir() string {
	if dir := os.Getenv("RISKCTL_STATE_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "contractrisk")
	}
	return ".contractrisk"
}
