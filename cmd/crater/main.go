// Command crater is a small CLI exercising the SDK against a live backend:
// log in, read collections, and watch realtime events.
//
//	crater [-a url] [-t tenant] [-d creds.db] login <email>
//	crater list <collection>
//	crater get <collection> <id>
//	crater me
//	crater watch <collection>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
	_ "modernc.org/sqlite"

	crater "github.com/craterhq/crater-go"
	"github.com/craterhq/crater-go/logging"
	"github.com/craterhq/crater-go/realtime"
	"github.com/craterhq/crater-go/storage"
)

func main() {
	cfg := LoadConfig()

	args := commandArgs()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(cfg, args); err != nil {
		log.Fatalf("%v", err)
	}
}

// commandArgs strips the flags owned by config parsing and returns the
// remaining positional arguments.
func commandArgs() []string {
	args := make([]string, 0, len(os.Args)-1)
	skip := false
	for _, arg := range os.Args[1:] {
		if skip {
			skip = false
			continue
		}
		switch arg {
		case "-a", "-t", "-d", "-o", "-c", "-config":
			skip = true
			continue
		}
		if len(arg) > 0 && arg[0] == '-' {
			continue
		}
		args = append(args, arg)
	}
	return args
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: crater [flags] <login|logout|me|list|get|watch> [args]")
}

func run(cfg *Config, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []crater.Option{
		crater.WithLogger(logging.NewDefault(os.Stderr)),
		crater.WithTimeout(cfg.Timeout),
	}
	if cfg.Tenant != "" {
		opts = append(opts, crater.WithTenant(cfg.Tenant))
	}
	if cfg.StoragePath != "" {
		store, err := storage.OpenSQLite(ctx, cfg.StoragePath)
		if err != nil {
			return err
		}
		opts = append(opts, crater.WithStorage(store))
	}

	c, err := crater.New(cfg.BaseURL, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	switch args[0] {
	case "login":
		if len(args) < 2 {
			return fmt.Errorf("usage: crater login <email>")
		}
		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		if err := c.Auth.Login(ctx, args[1], string(password)); err != nil {
			return err
		}
		fmt.Println("logged in")
		return nil

	case "logout":
		return c.Auth.Logout(ctx)

	case "me":
		user, err := c.Users.Me(ctx, nil)
		if err != nil {
			return err
		}
		return printJSON(user)

	case "list":
		if len(args) < 2 {
			return fmt.Errorf("usage: crater list <collection>")
		}
		items, err := c.Items(args[1]).List(ctx, nil)
		if err != nil {
			return err
		}
		return printJSON(items)

	case "get":
		if len(args) < 3 {
			return fmt.Errorf("usage: crater get <collection> <id>")
		}
		item, err := c.Items(args[1]).Get(ctx, args[2], nil)
		if err != nil {
			return err
		}
		return printJSON(item)

	case "watch":
		if len(args) < 2 {
			return fmt.Errorf("usage: crater watch <collection>")
		}
		return watch(ctx, c, args[1])

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// watch streams a collection's realtime events to stdout until interrupted.
func watch(ctx context.Context, c *crater.Client, collection string) error {
	if err := c.Realtime.Connect(ctx); err != nil {
		return err
	}
	off := c.Realtime.Subscribe(collection, func(event realtime.Event) {
		fmt.Printf("%s %s: %s\n", event.Action, collection, event.Data)
	})
	defer off()

	offState := c.Realtime.OnConnectionChange(func(connected bool) {
		if !connected {
			fmt.Fprintln(os.Stderr, "connection lost")
		}
	})
	defer offState()

	<-ctx.Done()
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
