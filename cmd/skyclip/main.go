// Command skyclip downloads the video attached to a Bluesky post.
//
//	get      Download one post's video to a file (or a GCS object with -gcs-bucket)
//	inspect  Show the variants of a post's (or a playlist URL's) HLS stream and the one that would be used
//	serve    Run the HTTP API: start downloads, follow progress over SSE, collect files
//	check    Verify the AppView is reachable (and a running API with -api)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/config"
	"github.com/snapetech/skyclip/internal/health"
	"github.com/snapetech/skyclip/internal/httpclient"
	"github.com/snapetech/skyclip/internal/materializer"
	"github.com/snapetech/skyclip/internal/pipeline"
	"github.com/snapetech/skyclip/internal/server"
)

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[skyclip] ")

	getCmd := flag.NewFlagSet("get", flag.ExitOnError)
	getFormat := getCmd.String("format", "", "Output format mp4|ts (default: SKYCLIP_FORMAT)")
	getOut := getCmd.String("out", "", "Output directory (default: SKYCLIP_OUTPUT_DIR)")
	getBucket := getCmd.String("gcs-bucket", "", "Upload to this GCS bucket instead of writing a file (default: SKYCLIP_GCS_BUCKET)")
	getPrefix := getCmd.String("gcs-prefix", "", "Object prefix inside the bucket (default: SKYCLIP_GCS_PREFIX)")
	getQuiet := getCmd.Bool("q", false, "No progress output")

	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	inspectTimeout := inspectCmd.Duration("timeout", 30*time.Second, "Overall timeout")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: SKYCLIP_ADDR)")
	serveStore := serveCmd.Bool("store", false, "Also write each finished video to SKYCLIP_OUTPUT_DIR or SKYCLIP_GCS_BUCKET")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkAPI := checkCmd.String("api", "", "Base URL of a running skyclip API to check too (e.g. http://localhost:8080)")
	checkTimeout := checkCmd.Duration("timeout", 15*time.Second, "Timeout")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <get|inspect|serve|check> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  get      Download a post's video: get [-format mp4|ts] [-out dir] <post-url>\n")
		fmt.Fprintf(os.Stderr, "  inspect  Show HLS variants: inspect <post-url|master-playlist-url>\n")
		fmt.Fprintf(os.Stderr, "  serve    Run the HTTP API\n")
		fmt.Fprintf(os.Stderr, "  check    Check AppView (and -api) reachability\n")
		os.Exit(1)
	}

	cfg := config.Load()
	closeLog := setupLogging(cfg)
	defer closeLog()
	if err := cfg.Validate(); err != nil {
		log.Printf("Config: %v", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "get":
		_ = getCmd.Parse(os.Args[2:])
		if getCmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s get [flags] <post-url>\n", os.Args[0])
			os.Exit(2)
		}
		formatName := cfg.Format
		if *getFormat != "" {
			formatName = *getFormat
		}
		format, err := assemble.ParseFormat(formatName)
		if err != nil {
			log.Printf("Get: %v", err)
			os.Exit(2)
		}
		dir, bucket, prefix := cfg.OutputDir, cfg.GCSBucket, cfg.GCSPrefix
		if *getOut != "" {
			dir = *getOut
		}
		if *getBucket != "" {
			bucket = *getBucket
		}
		if *getPrefix != "" {
			prefix = *getPrefix
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		comp, err := newComponents(cfg, nil)
		if err != nil {
			log.Printf("Get: %v", err)
			os.Exit(1)
		}
		store, closeStore, err := newStore(ctx, dir, bucket, prefix)
		if err != nil {
			log.Printf("Get: %v", err)
			os.Exit(1)
		}
		defer closeStore()
		var progress io.Writer = os.Stderr
		if *getQuiet {
			progress = nil
		}
		loc, err := runGet(ctx, comp.pipeline, store, pipeline.Request{PostURL: getCmd.Arg(0), Format: format}, progress)
		if err != nil {
			log.Printf("Download failed: %v", err)
			os.Exit(1)
		}
		fmt.Println(loc)

	case "inspect":
		_ = inspectCmd.Parse(os.Args[2:])
		if inspectCmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s inspect <post-url|master-playlist-url>\n", os.Args[0])
			os.Exit(2)
		}
		comp, err := newComponents(cfg, nil)
		if err != nil {
			log.Printf("Inspect: %v", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), *inspectTimeout)
		defer cancel()
		if err := runInspect(ctx, os.Stdout, comp, inspectCmd.Arg(0)); err != nil {
			log.Printf("Inspect failed: %v", err)
			os.Exit(1)
		}

	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		addr := cfg.Addr
		if *serveAddr != "" {
			addr = *serveAddr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		comp, err := newComponents(cfg, prometheus.DefaultRegisterer)
		if err != nil {
			log.Printf("Serve: %v", err)
			os.Exit(1)
		}
		var store materializer.Interface
		if *serveStore {
			s, closeStore, err := newStore(ctx, cfg.OutputDir, cfg.GCSBucket, cfg.GCSPrefix)
			if err != nil {
				log.Printf("Serve: %v", err)
				os.Exit(1)
			}
			defer closeStore()
			store = s
		}
		healthClient := httpclient.WithTimeout(10 * time.Second)
		srv := server.New(server.Options{
			Pipeline: comp.pipeline,
			Store:    store,
			Hosts:    cfg.PostHosts,
			Health: func(ctx context.Context) error {
				return health.CheckAppView(ctx, healthClient, cfg.AppViewURL)
			},
			Gatherer: prometheus.DefaultGatherer,
			JobTTL:   cfg.JobTTL,
		})
		if err := srv.Run(ctx, addr); err != nil {
			log.Printf("Serve: %v", err)
			os.Exit(1)
		}

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		ctx, cancel := context.WithTimeout(context.Background(), *checkTimeout)
		defer cancel()
		if err := health.CheckAppView(ctx, nil, cfg.AppViewURL); err != nil {
			log.Printf("AppView %s: %v", cfg.AppViewURL, err)
			os.Exit(1)
		}
		log.Printf("AppView %s OK", cfg.AppViewURL)
		if *checkAPI != "" {
			if err := health.CheckEndpoints(ctx, *checkAPI); err != nil {
				log.Printf("API %s: %v", *checkAPI, err)
				os.Exit(1)
			}
			log.Printf("API %s OK", *checkAPI)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
