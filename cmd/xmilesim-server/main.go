/*
Xmilesim-server starts an xmilesim server and begins listening for new
connections.

Usage:

	xmilesim-server [flags]
	xmilesim-server [flags] -l [[ADDRESS]:PORT]

Once started, the xmilesim server will listen for HTTP requests and respond
to them using REST protocol. By default, it will listen on localhost:8080.
This can be changed with the --listen/-l flag (or config via environment
var). The flag argument must be either a full address with port, such as
"192.168.0.2:6001", or just the IP address preceeded by a colon, such as
":6001".

If a JWT token secret is not given, one will be automatically generated and
seeded with random bytes. As a consequence, in this mode of operation all
tokens are rendered invalid as soon as the server shuts down. This is
suitable for testing, but must be given via either CLI flags or environment
variable if running in production.

The flags are:

	-v, --version
		Give the current version of the xmilesim server and then exit.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment
		variable XMILESIM_LISTEN_ADDRESS, and if that is not given, will
		default to localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less
		than 32 bytes in the secret, it will be repeated until it is. The
		maximum size is 64 bytes. If not given, will default to the value of
		environment variable XMILESIM_TOKEN_SECRET. If no secret is
		specified or an empty secret is given, a random secret will be
		automatically generated. Note that any tokens issued with a random
		secret will become invalid as soon as the server shuts down.

	--db DRIVER[:PARAMS]
		Use the given DB connection string. DRIVER must be one of the
		following: inmem, sqlite. inmem has no further params. sqlite needs
		the path to the data directory, such as sqlite:path/to/db_dir. If not
		given, will default to the value of environment variable
		XMILESIM_DATABASE. If no DB driver is specified or an empty one is
		given, an in-memory database is automatically selected.
*/
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/xmilesim/internal/version"
	"github.com/dekarrin/xmilesim/server"
	"github.com/dekarrin/xmilesim/server/dao"
	"github.com/dekarrin/xmilesim/server/serr"
	"github.com/spf13/pflag"
)

const (
	EnvListen = "XMILESIM_LISTEN_ADDRESS"
	EnvSecret = "XMILESIM_TOKEN_SECRET"
	EnvDB     = "XMILESIM_DATABASE"
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of xmilesim-server and then exit.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret  = pflag.StringP("secret", "s", "", "Use the given secret for token generation.")
	flagDB      = pflag.String("db", "", "Use the given DB connection string.")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("xmilesim-server %s (xmilesim v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	args := pflag.Args()

	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(1)
	}

	addr, port, err := parseListenAddr(flagListen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err.Error())
		os.Exit(1)
	}

	db, err := parseDBConfig(flagDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err.Error())
		os.Exit(1)
	}

	tokSecret, err := parseTokenSecret(flagSecret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}

	cfg := server.Config{
		TokenSecret: tokSecret,
		DB:          db,
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("FATAL could not start server: %s", err.Error())
	}
	log.Printf("DEBUG Server initialized")

	// immediately create the admin user so we have someone we can log in as.
	_, err = srv.CreateUser(context.Background(), "admin", "password", "bogus@example.com", dao.Admin)
	if err != nil && !errors.Is(err, serr.ErrAlreadyExists) {
		log.Printf("ERROR could not create initial admin user: %v", err)
		os.Exit(2)
	}
	if !errors.Is(err, serr.ErrAlreadyExists) {
		log.Printf("INFO  Added initial admin user with password 'password'...")
	}

	log.Printf("INFO  Starting xmilesim server %s...", version.ServerCurrent)
	if err := srv.ServeForever(addr, port); err != nil {
		log.Fatalf("FATAL server exited: %s", err.Error())
	}
}

func parseListenAddr(flagListen *string) (addr string, port int, err error) {
	listenAddr := os.Getenv(EnvListen)
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr == "" {
		return "localhost", 8080, nil
	}

	bindParts := strings.SplitN(listenAddr, ":", 2)
	if len(bindParts) != 2 {
		return "", 0, fmt.Errorf("listen address is not in ADDRESS:PORT or :PORT format")
	}

	port, err = strconv.Atoi(bindParts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%q is not a valid port number", bindParts[1])
	}

	return bindParts[0], port, nil
}

func parseDBConfig(flagDB *string) (server.Database, error) {
	dbConnStr := os.Getenv(EnvDB)
	if pflag.Lookup("db").Changed {
		dbConnStr = *flagDB
	}
	if dbConnStr == "" {
		return server.Database{Type: server.DatabaseInMemory}, nil
	}

	db, err := server.ParseDBConnString(dbConnStr)
	if err != nil {
		return server.Database{}, fmt.Errorf("not a valid DB string: %w", err)
	}
	return db, nil
}

func parseTokenSecret(flagSecret *string) ([]byte, error) {
	tokSecStr := os.Getenv(EnvSecret)
	if pflag.Lookup("secret").Changed {
		tokSecStr = *flagSecret
	}

	if tokSecStr == "" {
		tokSecret := make([]byte, 64)
		if _, err := rand.Read(tokSecret); err != nil {
			return nil, fmt.Errorf("could not generate token secret: %w", err)
		}
		log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
		return tokSecret, nil
	}

	tokSecret := []byte(tokSecStr)
	for len(tokSecret) < server.MinSecretSize {
		doubled := make([]byte, len(tokSecret)*2)
		copy(doubled, tokSecret)
		copy(doubled[len(tokSecret):], tokSecret)
		tokSecret = doubled
	}
	if len(tokSecret) > server.MaxSecretSize {
		return nil, fmt.Errorf("token secret is %d bytes, but it must be <= %d bytes", len(tokSecret), server.MaxSecretSize)
	}

	return tokSecret, nil
}
