// timecapsule-token manages the Ed25519 keypair behind capsule bearer tokens
//
//	timecapsule-token keygen --dir ./var/keys
//	timecapsule-token mint --dir ./var/keys --subject user-1 --ttl 24h
//	timecapsule-token verify --dir ./var/keys <token>
package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"timecapsule/internal/platform/auth/token"
	"timecapsule/internal/platform/clock"

	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage: timecapsule-token keygen|mint|verify [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "keygen":
		return keygen(args[1:], out)
	case "mint":
		return mint(args[1:], out)
	case "verify":
		return verify(args[1:], out)
	}
	return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
}

func keygen(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	dir := fs.String("dir", "./var/keys", "directory the keypair is written to")
	force := fs.Bool("force", false, "overwrite an existing keypair")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, _, err := token.LoadKeypair(*dir); err == nil {
			return fmt.Errorf("keypair already exists in %s (use --force)", *dir)
		}
	}
	pub, priv, err := token.GenerateKeypair()
	if err != nil {
		return err
	}
	if err := token.SaveKeypair(*dir, pub, priv); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "CAPSULE_AUTH_PUBLIC_KEY=%s\n", base64.StdEncoding.EncodeToString(pub))
	return err
}

func mint(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("mint", pflag.ContinueOnError)
	dir := fs.String("dir", "./var/keys", "directory holding the keypair")
	subject := fs.String("subject", "", "user id the token names")
	audience := fs.String("audience", "", "audience claim; blank matches a verifier with no audience")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("--subject is required")
	}
	if *ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	_, priv, err := token.LoadKeypair(*dir)
	if err != nil {
		return err
	}
	tok, err := token.MintFor(priv, *subject, *audience, time.Now(), *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func verify(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	dir := fs.String("dir", "./var/keys", "directory holding the keypair")
	audience := fs.String("audience", "", "expected audience")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("verify takes exactly one token")
	}

	pub, _, err := token.LoadKeypair(*dir)
	if err != nil {
		return err
	}
	c, err := token.NewVerifier(pub, *audience, clock.Real()).Verify(fs.Arg(0))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "subject=%s audience=%s id=%s expires=%s\n",
		c.Subject, c.Audience, c.ID, time.Unix(c.ExpiresAt, 0).UTC().Format(time.RFC3339))
	return err
}
