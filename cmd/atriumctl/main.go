// Command atriumctl is a small CLI for the Atrium API. It keeps a logged-in
// session in the user's config directory so sequential invocations share a
// token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/atrium-admin/atrium/internal/client"
	"github.com/atrium-admin/atrium/jobs"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "atriumctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	store, err := newSessionStore()
	if err != nil {
		return err
	}

	switch command {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		pass := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if err := store.Register(ctx, *name, *email, *pass); err != nil {
			return err
		}
		fmt.Printf("registered and logged in as %s\n", *email)
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		pass := fs.String("password", "", "password")
		remember := fs.Bool("remember", false, "request a long-lived token")
		_ = fs.Parse(args)
		if err := store.Login(ctx, *email, *pass, *remember); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", *email)
		return nil

	case "whoami":
		if err := store.CheckAuth(ctx); err != nil {
			return err
		}
		state := store.Snapshot()
		if !state.Authenticated || state.Account == nil {
			fmt.Println("not logged in")
			return nil
		}
		a := state.Account
		fmt.Printf("%s <%s> role=%s status=%s\n", a.Name, a.Email, a.Role, a.Status)
		return nil

	case "logout":
		if err := store.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "jobs":
		fs := flag.NewFlagSet("jobs", flag.ExitOnError)
		trigger := fs.String("trigger", "", "job to enqueue (activity:prune or stats:warmup)")
		_ = fs.Parse(args)
		if *trigger == "" {
			return errors.New("jobs: -trigger required")
		}
		queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr()})
		if err != nil {
			return err
		}
		defer queue.Close()
		info, err := queue.Trigger(ctx, *trigger)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s (task %s, queue %s)\n", *trigger, info.ID, info.Queue)
		return nil

	case "users":
		fs := flag.NewFlagSet("users", flag.ExitOnError)
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", 10, "page size")
		_ = fs.Parse(args)
		api := client.New(baseURL(), client.WithTokenSource(store.Token))
		list, err := api.ListUsers(ctx, *page, *limit)
		if err != nil {
			return err
		}
		for _, u := range list.Users {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.Status)
		}
		fmt.Printf("page %d/%d (%d total)\n", list.Pagination.Page, list.Pagination.TotalPages, list.Pagination.Total)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func newSessionStore() (*client.SessionStore, error) {
	api := client.New(baseURL())
	return client.NewSessionStore(api, client.NewFileStorage(sessionPath()))
}

func baseURL() string {
	if url := os.Getenv("ATRIUM_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "127.0.0.1:6379"
}

func sessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "atrium", "session.json")
	}
	return ".atrium-session.json"
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: atriumctl <command> [flags]

commands:
  register  -name NAME -email EMAIL -password PASS
  login     -email EMAIL -password PASS [-remember]
  whoami
  logout
  users     [-page N] [-limit N]
  jobs      -trigger activity:prune|stats:warmup

environment:
  ATRIUM_URL  API base URL (default http://localhost:8080)
  REDIS_ADDR  queue address for jobs (default 127.0.0.1:6379)`)
}
