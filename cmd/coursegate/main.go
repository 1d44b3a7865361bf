// Command coursegate is the operator tool for the session store and audit
// trail: key generation, expiry sweeps, session listing, forced logout and
// audit inspection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: coursegate <command> [flags]

commands:
  keygen                          print a new base64 session encryption key
  sweep                           remove expired sessions and record expiry events
  sessions   -user ID             list a user's active sessions
  revoke-all -user ID [-reason R] invalidate every session of a user
  audit      -user ID [-limit N]  print recent audit events for a user
  report                          print the configuration security posture

settings are read from the environment and an optional .env file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "coursegate: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command. environment overrides the process environment
// when non-nil.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, environment map[string]string) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}

	name, rest := args[0], args[1:]
	if name == "keygen" {
		return keygen(stdout)
	}

	s, err := loadSettings(".env", environment)
	if err != nil {
		return err
	}
	app := &cli{settings: s, stdout: stdout, logger: s.logger(stderr)}

	switch name {
	case "sweep":
		return app.sweep(ctx, rest)
	case "sessions":
		return app.sessions(ctx, rest)
	case "revoke-all":
		return app.revokeAll(ctx, rest)
	case "audit":
		return app.audit(ctx, rest)
	case "report":
		return app.report(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}
}
