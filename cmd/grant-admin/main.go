// Command grant-admin gives an email address the admin claim from its next
// sign-in. It writes to the configured session store directly, for
// bootstrapping the first admin.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"wisma/internal/backend"
	"wisma/internal/cli"
	"wisma/internal/log"
)

func main() {
	grantedBy := flag.String("by", "cli", "recorded as the grantor")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-by name] email\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	email := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if !strings.Contains(email, "@") {
		fmt.Fprintln(os.Stderr, "not an email address:", flag.Arg(0))
		os.Exit(2)
	}

	cfg, logger := cli.Bootstrap(log.ComponentAuth)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	if !bcfg.SessionStore.IsDurable() {
		cli.Fatal(logger, "Refusing to grant admin",
			fmt.Errorf("session store %q does not persist; set SESSION_STORE to sqlite or redis", bcfg.SessionStore))
	}
	b, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open backend", err)
	}
	defer b.Cleanup()

	if err := b.Sessions.GrantAdmin(ctx, email, *grantedBy, time.Now().UTC()); err != nil {
		cli.Fatal(logger, "Failed to grant admin", err)
	}
	logger.Info("Admin granted", "email", email, "granted_by", *grantedBy)
}
