// Command dashboard serves the monitoring UI as a separate process.
// It opens its own read handles on the tick and signal stores, so a
// dashboard crash or slow client can never stall the decision loop.
//
// Usage:
//
//	dashboard --addr :8080
//	dashboard --store postgres --postgres-dsn "postgres://..."
//	dashboard --tls-domains screener.example.com
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Subakiz/IDX-SCREENER/dashboard"
	"github.com/Subakiz/IDX-SCREENER/internal/storage/signals"
	"github.com/Subakiz/IDX-SCREENER/internal/storage/ticks"
)

func main() {
	addr := flag.String("addr", ":8080", "dashboard listen address")
	storeKind := flag.String("store", "wal", "tick store: wal or postgres")
	walDir := flag.String("wal-dir", "", "tick WAL directory (wal store)")
	signalsWalDir := flag.String("signals-wal-dir", "", "signal WAL directory")
	postgresDSN := flag.String("postgres-dsn", "", "postgres connection string (postgres store)")
	tlsDomains := flag.String("tls-domains", "", "comma-separated domains for automatic TLS; empty serves plain HTTP")
	certCache := flag.String("cert-cache", "cert-cache", "directory for cached TLS certificates")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tickStore ticks.Store
	var err error
	switch *storeKind {
	case "postgres":
		if *postgresDSN == "" {
			log.Fatal("--postgres-dsn is required with the postgres store")
		}
		tickStore = ticks.NewPostgresStore(*postgresDSN)
	case "wal":
		tickStore, err = ticks.NewWALStore(*walDir)
		if err != nil {
			log.Fatalf("open tick store: %v", err)
		}
	default:
		log.Fatalf("unknown store %q", *storeKind)
	}
	if err := tickStore.Connect(ctx); err != nil {
		log.Fatalf("connect tick store: %v", err)
	}
	defer tickStore.Close()

	signalStore, err := signals.NewWALStore(*signalsWalDir)
	if err != nil {
		log.Fatalf("open signal store: %v", err)
	}
	defer signalStore.Close()

	srv := dashboard.NewServer(*addr, tickStore, signalStore)

	if *tlsDomains != "" {
		domains := strings.Split(*tlsDomains, ",")
		log.Printf("dashboard listening on %s (https, domains %v)", *addr, domains)
		if err := srv.StartWithAutoTLS(ctx, domains, *certCache); err != nil {
			log.Fatal(err)
		}
		return
	}

	log.Printf("dashboard listening on %s", *addr)
	if err := srv.Start(ctx); err != nil {
		log.Fatal(err)
	}
}
