//  Copyright 2026 Google LLC
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// procnamecli is a cli tool for listing running processes by resolved program name.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
	"github.com/GoogleCloudPlatform/procname/cfg"
	"github.com/GoogleCloudPlatform/procname/exporter"
	"github.com/GoogleCloudPlatform/procname/ps"
	"gopkg.in/yaml.v3"
)

const (
	programName = "procnamecli"

	// shutdownTimeout bounds how long serve waits for in flight scrapes.
	shutdownTimeout = 10 * time.Second
)

// Action is an action to be invoked by the user.
type Action struct {
	helpmsg string
	fn      ActionFunc
}

// ActionSet is a map of actions to the string needed to run them with procnamecli.
type ActionSet map[string]Action

// String returns a usage string for the Actions in the ActionSet.
func (as ActionSet) String() string {
	var names []string
	for n := range as {
		names = append(names, n)
	}
	sort.Strings(names)

	var s strings.Builder
	for _, n := range names {
		s.WriteString(fmt.Sprintf("  %s\n\t%s\n", n, as[n].helpmsg))
	}
	return s.String()
}

// Find the named action or return a default error action.
func (as ActionSet) Find(name string) ActionFunc {
	if action, ok := as[name]; ok {
		return action.fn
	}
	return func(context.Context) (string, int) {
		return fmt.Sprintf("Action %s not found.\nactions:\n%s", name, as.String()), 1
	}
}

// ActionFunc is a function to execute the action. It returns an optional
// message and the exit code for procnamecli.
type ActionFunc func(context.Context) (string, int)

var (
	defaultActions = ActionSet{
		"list": {
			helpmsg: "list every running process whose program name can be resolved",
			fn:      list,
		},
		"find": {
			helpmsg: "list the processes named by the 'names' flag and any extra arguments, exits 1 if none is running",
			fn:      find,
		},
		"pid": {
			helpmsg: "resolve the process given by the 'pid' flag",
			fn:      pid,
		},
		"self": {
			helpmsg: "resolve procnamecli's own process",
			fn:      self,
		},
		"serve": {
			helpmsg: "serve prometheus metrics on the 'listen' address until interrupted",
			fn:      serve,
		},
	}

	configPath = flag.String("config", "", "configuration file, defaults to /etc/default/procname.cfg")
	format     = flag.String("format", "text", "output format: text, json or yaml")
	names      = flag.String("names", "", "comma separated program names for find and serve")
	pidFlag    = flag.Int("pid", -1, "process id for the pid action")
	listen     = flag.String("listen", "", "listen address for serve, defaults to the configured Exporter listen_address")
	help       = flag.Bool("help", false, "print usage information")
)

func list(context.Context) (string, int) {
	return output(ps.All(), 0)
}

func find(context.Context) (string, int) {
	var extra []string
	if flag.NArg() > 1 {
		extra = flag.Args()[1:]
	}

	wanted := splitNames(*names, extra...)
	if len(wanted) == 0 {
		return "find called with no names", 1
	}

	procs := ps.Find(wanted)
	if len(procs) == 0 {
		// Like pidof, nothing found is a failure.
		return output(procs, 1)
	}
	return output(procs, 0)
}

func pid(context.Context) (string, int) {
	if *pidFlag < 0 {
		return "pid called with no 'pid' flag", 1
	}

	p, ok := ps.FindPid(*pidFlag)
	if !ok {
		return fmt.Sprintf("process %d not found", *pidFlag), 1
	}
	return output([]ps.Process{p}, 0)
}

func self(context.Context) (string, int) {
	p, ok := ps.Self()
	if !ok {
		return "failed to resolve own process", 1
	}
	return output([]ps.Process{p}, 0)
}

func serve(ctx context.Context) (string, int) {
	addr := *listen
	if addr == "" {
		addr = cfg.Get().Exporter.ListenAddress
	}

	collector := exporter.New(ps.Client, splitNames(*names, strings.Split(cfg.Get().Exporter.Names, ",")...))
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler(collector))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	logger.Infof("Serving metrics on %s/metrics", addr)

	select {
	case err := <-errs:
		return fmt.Sprintf("metrics server failed: %v", err), 1
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Sprintf("metrics server shutdown failed: %v", err), 1
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Sprintf("metrics server failed: %v", err), 1
	}
	return "", 0
}

// splitNames merges a comma separated name list with extra names, dropping
// blanks and duplicates while keeping the first-seen order.
func splitNames(csv string, extra ...string) []string {
	seen := make(map[string]bool)
	var res []string
	for _, name := range append(strings.Split(csv, ","), extra...) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		res = append(res, name)
	}
	return res
}

// output renders procs in the selected format and pairs it with the exit code.
func output(procs []ps.Process, code int) (string, int) {
	msg, err := render(procs, *format)
	if err != nil {
		return err.Error(), 1
	}
	return msg, code
}

func render(procs []ps.Process, format string) (string, error) {
	if procs == nil {
		procs = []ps.Process{}
	}

	switch strings.ToLower(format) {
	case "", "text":
		var s strings.Builder
		for _, p := range procs {
			s.WriteString(fmt.Sprintf("%d\t%s\n", p.Pid, p.Name))
		}
		return s.String(), nil
	case "json":
		dat, err := json.MarshalIndent(procs, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal processes to json: %+v", err)
		}
		return string(dat), nil
	case "yaml":
		dat, err := yaml.Marshal(procs)
		if err != nil {
			return "", fmt.Errorf("failed to marshal processes to yaml: %+v", err)
		}
		return string(dat), nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected text, json or yaml", format)
	}
}

// newClient builds the process catalog described by the configuration.
func newClient(sections *cfg.Sections) (*ps.LinuxClient, error) {
	fallback, err := ps.ParseFallback(sections.NameResolver.Fallback)
	if err != nil {
		return nil, fmt.Errorf("invalid NameResolver configuration: %w", err)
	}

	return &ps.LinuxClient{
		ProcDir: sections.Proc.Root,
		Resolver: ps.Resolver{
			CmdlineLimit: sections.Proc.CmdlineReadLimit,
			Fallback:     fallback,
		},
	}, nil
}

func logFormat(e logger.LogEntry) string {
	switch e.Severity {
	case logger.Error, logger.Critical, logger.Debug:
		// ERROR file.go:82 This is a log message.
		return fmt.Sprintf("%s %s:%d %s", strings.ToUpper(e.Severity.String()), e.Source.File, e.Source.Line, e.Message)
	default:
		// This is a log message.
		return e.Message
	}
}

func main() {
	flag.Usage = func() {
		fmt.Printf("%s usage:\n", programName)
		fmt.Printf("actions:\n")
		fmt.Print(defaultActions.String())
		fmt.Printf("flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.SetConfigFile(*configPath)
	if err := cfg.Load(nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	opts := logger.LogOpts{
		LoggerName:     programName,
		FormatFunction: logFormat,
		Writers:        []io.Writer{os.Stderr},
		// No need for syslog or cloud logging in a cli.
		DisableLocalLogging: true,
		DisableCloudLogging: true,
		Debug:               cfg.Get().Core.DebugLogging || os.Getenv("PROCNAME_DEBUG") != "",
	}
	if err := logger.Init(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	client, err := newClient(cfg.Get())
	if err != nil {
		logger.Fatalf("Error creating process client: %v", err)
	}
	ps.Client = client

	actionFn := defaultActions.Find(flag.Arg(0))
	msg, i := actionFn(ctx)
	if msg != "" {
		fmt.Print(msg)
		if !strings.HasSuffix(msg, "\n") {
			fmt.Print("\n")
		}
	}
	logger.Close()
	os.Exit(i)
}
