package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/aussiebroadwan/praxis/internal/app"
	"github.com/aussiebroadwan/praxis/internal/session"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
)

const usage = `usage: praxis <command> [flags]

commands:
  login          sign in with email and password
  register       create an account
  verify-email   confirm an email address, or -resend the link
  2fa-login      answer a login two-factor challenge
  2fa-setup      start two-factor enrolment
  2fa-verify     confirm a two-factor code, with -secret during enrolment
  2fa-disable    turn off two-factor authentication
  refresh        re-validate the stored session
  status         print the stored session
  logout         end the session
  watch          keep the session refreshed and serve metrics
`

// errFailed means the operation ran and reported its failure already.
var errFailed = errors.New("operation failed")

type command func(ctx context.Context, a *app.Application, args []string) error

var commands = map[string]command{
	"login":        runLogin,
	"register":     runRegister,
	"verify-email": runVerifyEmail,
	"2fa-login":    run2FALogin,
	"2fa-setup":    run2FASetup,
	"2fa-verify":   run2FAVerify,
	"2fa-disable":  run2FADisable,
	"refresh":      runRefresh,
	"status":       runStatus,
	"logout":       runLogout,
	"watch":        runWatch,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, session.NotifierFunc(printNotice))
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	err = cmd(ctx, application, os.Args[2:])
	application.Close()

	switch {
	case errors.Is(err, errFailed):
		os.Exit(1)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func printNotice(_ context.Context, n session.Notice) {
	fmt.Fprintf(os.Stderr, "! %s\n", n.Message)
}

// printSession writes the state a user acts on next.
func printSession(w io.Writer, mgr *session.Manager) {
	fmt.Fprintf(w, "state:      %s\n", mgr.State())
	if u := mgr.User(); u != nil {
		fmt.Fprintf(w, "user:       %s <%s> (%s)\n", u.FullName(), u.Email, u.Role)
		fmt.Fprintf(w, "two-factor: enabled=%t setup_completed=%t\n", u.TwoFactorEnabled, u.TwoFactorSetupCompleted)
	}
	if nav := mgr.TakePendingNavigation(); nav != "" {
		fmt.Fprintf(w, "next:       %s\n", nav)
	}
	if msg := mgr.Error(); msg != "" {
		fmt.Fprintf(w, "error:      %s\n", msg)
	}
}

// finish prints the session and maps a false result to errFailed.
func finish(mgr *session.Manager, ok bool) error {
	printSession(os.Stdout, mgr)
	if !ok {
		return errFailed
	}
	return nil
}

func parse(name string, args []string, define func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	define(fs)
	return fs.Parse(args)
}

func required(flags map[string]string) error {
	var missing []string
	for name, v := range flags {
		if v == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ============================================================================
// Commands
// ============================================================================

func runLogin(ctx context.Context, a *app.Application, args []string) error {
	var creds session.Credentials
	err := parse("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&creds.Email, "email", "", "account email")
		fs.StringVar(&creds.Password, "password", os.Getenv("PRAXIS_PASSWORD"), "account password (default $PRAXIS_PASSWORD)")
		fs.BoolVar(&creds.RememberDevice, "remember", false, "remember this device")
	})
	if err != nil {
		return err
	}
	if err := required(map[string]string{"email": creds.Email, "password": creds.Password}); err != nil {
		return err
	}

	res, err := a.Session().Login(ctx, creds)
	printSession(os.Stdout, a.Session())
	if err != nil {
		return err
	}

	switch res {
	case session.LoginTwoFactorRequired:
		fmt.Println("two-factor code required: praxis 2fa-login -code <code>")
	case session.LoginEmailNotVerified:
		fmt.Println("verify your email first: praxis verify-email -token <token>")
	}
	if res == session.LoginRejected || res == session.LoginEmailNotVerified {
		return errFailed
	}
	return nil
}

func runRegister(ctx context.Context, a *app.Application, args []string) error {
	var req authsdk.RegisterRequest
	var role string
	err := parse("register", args, func(fs *flag.FlagSet) {
		fs.StringVar(&req.Email, "email", "", "account email")
		fs.StringVar(&req.Password, "password", os.Getenv("PRAXIS_PASSWORD"), "account password (default $PRAXIS_PASSWORD)")
		fs.StringVar(&req.FirstName, "first-name", "", "first name")
		fs.StringVar(&req.LastName, "last-name", "", "last name")
		fs.StringVar(&role, "role", "", "requested role (server default when empty)")
	})
	if err != nil {
		return err
	}
	if err := required(map[string]string{"email": req.Email, "password": req.Password}); err != nil {
		return err
	}
	req.Role = authsdk.Role(role)

	ok, err := a.Session().Register(ctx, req)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("error: %s\n", a.Session().Error())
		return errFailed
	}
	fmt.Println("registered; check your email for the verification link")
	return nil
}

func runVerifyEmail(ctx context.Context, a *app.Application, args []string) error {
	var token, resend string
	err := parse("verify-email", args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", "", "verification token from the email")
		fs.StringVar(&resend, "resend", "", "send a new verification email to this address")
	})
	if err != nil {
		return err
	}

	var resp *authsdk.StatusResponse
	switch {
	case resend != "":
		resp, err = a.Client().ResendVerification(ctx, resend)
	case token != "":
		resp, err = a.Client().VerifyEmail(ctx, token)
	default:
		return errors.New("one of -token or -resend is required")
	}
	if err != nil {
		fmt.Printf("error: %s\n", authsdk.Message(err))
		return errFailed
	}
	fmt.Println(resp.Message)
	return nil
}

func run2FALogin(ctx context.Context, a *app.Application, args []string) error {
	var code string
	if err := parse("2fa-login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&code, "code", "", "code from the authenticator app")
	}); err != nil {
		return err
	}
	if err := required(map[string]string{"code": code}); err != nil {
		return err
	}
	return finish(a.Session(), a.Session().Complete2FALogin(ctx, code))
}

func run2FASetup(ctx context.Context, a *app.Application, args []string) error {
	if err := parse("2fa-setup", args, func(*flag.FlagSet) {}); err != nil {
		return err
	}

	setup, ok := a.Session().Setup2FA(ctx)
	if !ok {
		return finish(a.Session(), false)
	}

	fmt.Printf("secret:     %s\n", setup.Secret)
	if key, err := setup.Key(); err == nil {
		fmt.Printf("account:    %s (%s)\n", key.AccountName(), key.Issuer())
	}
	fmt.Printf("otpauth:    %s\n", setup.QRCodeURL)
	if len(setup.BackupCodes) > 0 {
		fmt.Printf("backup:     %s\n", strings.Join(setup.BackupCodes, " "))
	}
	fmt.Printf("confirm with: praxis 2fa-verify -secret %s -code <code>\n", setup.Secret)
	return nil
}

func run2FAVerify(ctx context.Context, a *app.Application, args []string) error {
	var code, secret string
	if err := parse("2fa-verify", args, func(fs *flag.FlagSet) {
		fs.StringVar(&code, "code", "", "code from the authenticator app")
		fs.StringVar(&secret, "secret", "", "secret from 2fa-setup when enrolling")
	}); err != nil {
		return err
	}
	if err := required(map[string]string{"code": code}); err != nil {
		return err
	}
	return finish(a.Session(), a.Session().Verify2FA(ctx, code, secret))
}

func run2FADisable(ctx context.Context, a *app.Application, args []string) error {
	var code string
	if err := parse("2fa-disable", args, func(fs *flag.FlagSet) {
		fs.StringVar(&code, "code", "", "current code from the authenticator app")
	}); err != nil {
		return err
	}
	if err := required(map[string]string{"code": code}); err != nil {
		return err
	}
	return finish(a.Session(), a.Session().Disable2FA(ctx, code))
}

func runRefresh(ctx context.Context, a *app.Application, args []string) error {
	if err := parse("refresh", args, func(*flag.FlagSet) {}); err != nil {
		return err
	}
	a.Session().RefreshAuth(ctx)
	return finish(a.Session(), a.Session().IsAuthenticated() || a.Session().TwoFactorSetupRequired())
}

func runStatus(_ context.Context, a *app.Application, args []string) error {
	if err := parse("status", args, func(*flag.FlagSet) {}); err != nil {
		return err
	}
	printSession(os.Stdout, a.Session())
	return nil
}

func runLogout(ctx context.Context, a *app.Application, args []string) error {
	if err := parse("logout", args, func(*flag.FlagSet) {}); err != nil {
		return err
	}
	a.Session().Logout(ctx)
	return finish(a.Session(), true)
}

func runWatch(ctx context.Context, a *app.Application, args []string) error {
	if err := parse("watch", args, func(*flag.FlagSet) {}); err != nil {
		return err
	}
	if !a.Session().IsAuthenticated() {
		printSession(os.Stdout, a.Session())
		return errFailed
	}
	return a.Watch(ctx)
}
