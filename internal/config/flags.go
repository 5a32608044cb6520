package config

import (
	"flag"
	"os"
	"time"

	"mealtrack/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   user id the local store is scoped to
//	-d string   path of the local SQLite database
//	-p string   Firestore project id
//	-k string   Firestore credentials file
//	-r string   URL probed to infer connectivity
//	-i int      online check interval in seconds
//	-t int      remote call timeout in seconds
//
// The function filters os.Args to only the flags it knows about, using
// flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-d", "-p", "-k", "-r", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id the local store is scoped to")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local SQLite database")
	fs.StringVar(&cfg.FirestoreProjectID, "p", cfg.FirestoreProjectID, "Firestore project id")
	fs.StringVar(&cfg.FirestoreCredentialsFile, "k", cfg.FirestoreCredentialsFile, "Firestore credentials file")
	fs.StringVar(&cfg.ProbeURL, "r", cfg.ProbeURL, "URL probed to infer connectivity")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	remoteCallTimeout := fs.Int("t", int(cfg.RemoteCallTimeout.Seconds()), "remote call timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RemoteCallTimeout = time.Duration(*remoteCallTimeout) * time.Second
}
