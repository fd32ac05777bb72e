package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evergrove/authfront/internal/auth"
	"github.com/evergrove/authfront/internal/callback"
	"github.com/evergrove/authfront/internal/config"
	"github.com/evergrove/authfront/internal/log"
	"github.com/evergrove/authfront/internal/session"
	"github.com/evergrove/authfront/internal/store"
)

var BuildVersion = "dev"

// loginTimeout bounds how long we wait for the user to finish
// authenticating in the browser.
const loginTimeout = 5 * time.Minute

// sessionService is the slice of the auth service the read-only commands
// use, narrowed so tests can substitute doubles.
type sessionService interface {
	ValidateSession(ctx context.Context) bool
	IsExpired() bool
	CurrentUser(ctx context.Context) *auth.UserProfile
}

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"issuer":                "https://id.yourcompany.com",
		"realm":                 "yourrealm",
		"clientId":              map[string]string{"$env": "OIDC_CLIENT_ID"},
		"scopes":                []string{"openid", "email", "profile"},
		"redirectUri":           "http://127.0.0.1:8765/callback",
		"postLogoutRedirectUri": "http://127.0.0.1:8765",
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	generate := flag.Bool("generate-config", false, "write a starter config file and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}

	if *generate {
		if err := generateDefaultConfig(*configPath); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote starter config to %s\n", *configPath)
		return
	}

	command := flag.Arg(0)
	if command == "" {
		command = "login"
	}

	if err := run(command, *configPath); err != nil {
		log.LogError("%v", err)
		os.Exit(1)
	}
}

func run(command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sessionStore := store.NewMemoryStore()
	svc, err := auth.New(cfg, sessionStore)
	if err != nil {
		return err
	}
	manager := session.NewManager(svc)

	manager.OnChange(func(snap session.Snapshot) {
		fields := map[string]any{"state": string(snap.State)}
		if snap.User != nil {
			fields["user"] = snap.User.Username
		}
		log.LogInfoWithFields("session", "State changed", fields)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "login":
		return runLogin(ctx, cfg, svc, manager)
	case "status":
		return runStatus(ctx, os.Stdout, svc)
	case "whoami":
		return runWhoami(ctx, os.Stdout, svc)
	case "logout":
		return runLogout(ctx, os.Stdout, manager)
	default:
		return fmt.Errorf("unknown command %q (expected login, status, whoami, or logout)", command)
	}
}

func runLogin(ctx context.Context, cfg config.Config, svc *auth.Service, manager *session.Manager) error {
	snap := manager.Start(ctx)
	if snap.Authenticated() {
		printProfile(os.Stdout, snap.User)
		return awaitExitAndLogout(ctx, manager)
	}

	// No restorable session: run the login flow.
	srv, err := callback.New(cfg.RedirectURI, func(ctx context.Context, params url.Values) error {
		_, err := svc.HandleCallback(ctx, params)
		return err
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		_ = srv.Shutdown(context.Background())
	}()

	if err := manager.Login(ctx); err != nil {
		return fmt.Errorf("starting login: %w", err)
	}

	select {
	case err := <-srv.Done():
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	case <-time.After(loginTimeout):
		return fmt.Errorf("timed out waiting for the authorization response")
	case <-ctx.Done():
		return ctx.Err()
	}

	snap = manager.RefreshUser(ctx)
	if !snap.Authenticated() {
		return fmt.Errorf("login completed but no session was established")
	}
	printProfile(os.Stdout, snap.User)

	return awaitExitAndLogout(ctx, manager)
}

// runStatus reports whether a usable session exists and whether the stored
// access token had to be refreshed to establish that.
func runStatus(ctx context.Context, w io.Writer, svc sessionService) error {
	expired := svc.IsExpired()
	if !svc.ValidateSession(ctx) {
		fmt.Fprintln(w, "No active session.")
		return nil
	}

	if expired {
		fmt.Fprintln(w, "Session active; access token was expired and has been refreshed.")
	} else {
		fmt.Fprintln(w, "Session active; access token valid.")
	}
	return nil
}

func runWhoami(ctx context.Context, w io.Writer, svc sessionService) error {
	user := svc.CurrentUser(ctx)
	if user == nil {
		return fmt.Errorf("not signed in")
	}
	printProfile(w, user)
	return nil
}

func runLogout(ctx context.Context, w io.Writer, manager *session.Manager) error {
	if err := manager.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintln(w, "Logged out.")
	return nil
}

// awaitExitAndLogout keeps the session alive until interrupted, then ends it.
func awaitExitAndLogout(ctx context.Context, manager *session.Manager) error {
	fmt.Println("Session active. Press Ctrl-C to log out and exit.")
	<-ctx.Done()

	logoutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Logout(logoutCtx); err != nil {
		log.LogWarn("Logout finished with error: %v", err)
	}
	return nil
}

func printProfile(w io.Writer, user *auth.UserProfile) {
	fmt.Fprintf(w, "Signed in as %s", user.Username)
	if user.Email != "" {
		fmt.Fprintf(w, " <%s>", user.Email)
	}
	fmt.Fprintln(w)
}
