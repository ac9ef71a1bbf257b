// Command authclient logs in to the user service and keeps the session between runs.
//
// Usage:
//
//	authclient [global flags] <command> [command flags]
//
// Commands:
//
//	register -email E -password P -name N -phone T -role R
//	login    -email E -password P   (password also read from AUTHCLIENT_PASSWORD)
//	me                              print the profile, refreshing the token if needed
//	status                          print the local session and storage health without calling the API
//	logout
//
// Configuration comes from the environment (see authclient.Config) and an optional
// .env file; global flags override it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/authclient"
	"github.com/dmitrymomot/authclient/pkg/lifecycle"
	"github.com/dmitrymomot/authclient/pkg/session"
)

var errUsage = errors.New("usage: authclient [-env-file F] [-base-url U] [-backend memory|file|redis] [-dir D] register|login|me|status|logout [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("authclient", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	envFile := global.String("env-file", "", "optional .env file")
	baseURL := global.String("base-url", "", "user service base URL")
	backend := global.String("backend", "", "session storage: memory, file or redis")
	dir := global.String("dir", "", "session directory for the file backend")
	if err := global.Parse(args); err != nil || global.NArg() == 0 {
		return errUsage
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := authclient.LoadConfig(envFiles...)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.Transport.BaseURL = *baseURL
	}
	if *backend != "" {
		cfg.Session.Backend = session.Backend(*backend)
	}
	if *dir != "" {
		cfg.Session.Dir = *dir
	}

	client, err := authclient.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "register":
		return register(ctx, client, cmdArgs, stdout)
	case "login":
		return login(ctx, client, cmdArgs, stdout)
	case "me":
		identity, err := client.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, identity)
	case "status":
		return status(ctx, client, stdout)
	case "logout":
		if err := client.Logout(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(stdout, "logged out")
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func register(ctx context.Context, client *authclient.Client, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var req lifecycle.RegisterRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", os.Getenv("AUTHCLIENT_PASSWORD"), "account password")
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Phone, "phone", "", "phone number")
	fs.StringVar(&req.Role, "role", "customer", "customer, restaurant or courier")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	id, err := client.Register(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]string{"user_id": id})
}

func login(ctx context.Context, client *authclient.Client, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("AUTHCLIENT_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	identity, err := client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return printJSON(stdout, identity)
}

func status(ctx context.Context, client *authclient.Client, stdout io.Writer) error {
	snap := client.Session()
	out := struct {
		Authenticated  bool                  `json:"authenticated"`
		User           *session.Identity     `json:"user,omitempty"`
		Token          *authclient.TokenInfo `json:"token,omitempty"`
		StorageHealthy bool                  `json:"storage_healthy"`
		StorageError   string                `json:"storage_error,omitempty"`
	}{
		Authenticated:  snap.IsAuthenticated(),
		User:           snap.Identity,
		StorageHealthy: true,
	}
	if info, ok := client.Token(); ok {
		out.Token = &info
	}
	if err := client.Healthy(ctx); err != nil {
		out.StorageHealthy = false
		out.StorageError = err.Error()
	}
	return printJSON(stdout, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
