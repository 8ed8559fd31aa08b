// ABOUTME: CLI client for session-gateway
// ABOUTME: Manages a persisted session and calls the authenticated endpoints

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/session-gateway/internal/client"
	"github.com/2389/session-gateway/internal/store"
)

const banner = `
                   _                  _   _
 ___  ___  ___ ___(_) ___  _ __   ___| |_| |
/ __|/ _ \/ __/ __| |/ _ \| '_ \ / __| __| |
\__ \  __/\__ \__ \ | (_) | | | | (__| |_| |
|___/\___||___/___/_|\___/|_| |_|\___|\__|_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("SESSION_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := newClient(baseURL)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		err = cmdLogin(ctx, c, args)
	case "logout":
		err = cmdLogout(ctx, c)
	case "me":
		err = cmdMe(ctx, c)
	case "data":
		err = cmdData(ctx, c)
	case "admin":
		err = cmdAdmin(ctx, c)
	case "status":
		err = cmdStatus(ctx, c, baseURL)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: sessionctl <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login [username]   Authenticate and store the session")
	fmt.Println("  logout             Revoke the current token and clear the session")
	fmt.Println("  me                 Show your identity as the gateway sees it")
	fmt.Println("  data               Fetch the protected sample payload")
	fmt.Println("  admin              Show the admin panel (admin role required)")
	fmt.Println("  status             Show gateway health and session state")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SESSION_GATEWAY_URL   Gateway base URL (default: http://localhost:3001)")
	fmt.Println()
}

// sessionPath returns where the persisted session lives.
// Priority: XDG_DATA_HOME/session-gateway > ~/.local/share/session-gateway
func sessionPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "session.json" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "session-gateway", "session.json")
}

func newClient(baseURL string) (*client.Client, error) {
	session, err := client.NewSessionManager(client.NewFileStorage(sessionPath()))
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return client.New(baseURL, session), nil
}

func cmdLogin(ctx context.Context, c *client.Client, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")

	resp, err := c.Login(ctx, username, password)
	if err != nil {
		return err
	}

	color.Green("Logged in as %s (%s)\n", resp.User.Username, resp.User.Role)
	return nil
}

func cmdLogout(ctx context.Context, c *client.Client) error {
	if err := c.Logout(ctx); err != nil {
		return err
	}
	color.Green("Logged out\n")
	return nil
}

func cmdMe(ctx context.Context, c *client.Client) error {
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	printUser(me)
	return nil
}

func cmdData(ctx context.Context, c *client.Client) error {
	data, err := c.ProtectedData(ctx)
	if err != nil {
		return err
	}

	fmt.Println(data.Message)
	fmt.Printf("  user:      %s\n", data.Data.User)
	fmt.Printf("  timestamp: %s\n", data.Data.Timestamp)
	fmt.Printf("  payload:   %s\n", data.Data.SecretData)
	return nil
}

func cmdAdmin(ctx context.Context, c *client.Client) error {
	panel, err := c.AdminPanel(ctx)
	if err != nil {
		return err
	}

	fmt.Println(panel.Message)
	fmt.Printf("  users: %d, active refresh tokens: %d\n\n",
		panel.Data.Stats.TotalUsers, panel.Data.Stats.ActiveTokens)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, u := range panel.Data.Users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role)
	}
	return w.Flush()
}

func cmdStatus(ctx context.Context, c *client.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("gateway unreachable at %s: %w", baseURL, err)
	}
	fmt.Printf("Gateway:  %s (%s)\n", baseURL, health.Status)

	if user := c.Session().CurrentUser(); user != nil {
		state := "expired"
		if c.Session().IsAuthenticated() {
			state = "active"
		}
		fmt.Printf("Session:  %s (%s)\n", user.Username, state)
	} else {
		fmt.Println("Session:  none")
	}
	return nil
}

func printUser(u *store.UserInfo) {
	cyan := color.New(color.FgCyan)
	cyan.Println("Identity")
	cyan.Println("--------")
	fmt.Printf("ID:       %d\n", u.ID)
	fmt.Printf("Username: %s\n", u.Username)
	fmt.Printf("Email:    %s\n", u.Email)
	fmt.Printf("Role:     %s\n", u.Role)
}
