// dal is the command line companion of the dal packages: it validates
// statement resources, previews dialect rewrites, writes msgpack bundles
// and generates statement id constants.
//
//	dal lint [-watch] DIR
//	dal render [-dialect NAME] [-params JSON] DIR ID
//	dal bundle -o FILE DIR
//	dal gen [-pkg NAME] -o FILE DIR
//	dal check CONFIG
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/dal/client"
	"github.com/syssam/dal/compiler/gen"
	"github.com/syssam/dal/dialect"
	dsql "github.com/syssam/dal/dialect/sql"
	"github.com/syssam/dal/registry"
	"github.com/syssam/dal/render"
)

const usage = `usage: dal [-v] <command> [flags] DIR

commands:
  lint     load and validate statement resources
  render   print the rendered, paged and bound SQL of one statement
  bundle   write all statements to a msgpack bundle
  gen      generate Go constants for every statement id
  check    open the configured database and registry
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	verbose := fs.Bool("v", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmds := map[string]func(context.Context, []string, io.Writer, *slog.Logger) error{
		"lint":   lint,
		"render": renderCmd,
		"bundle": bundle,
		"gen":    generate,
		"check":  check,
	}
	cmd, ok := cmds[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "dal: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}
	if err := cmd(ctx, fs.Args()[1:], stdout, logger); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "dal %s: %v\n", fs.Arg(0), err)
		return 1
	}
	return 0
}

// parse parses the flags of a subcommand and checks its positional
// argument count.
func parse(fs *flag.FlagSet, args []string, nargs int, logger *slog.Logger) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != nargs {
		logger.Error("wrong number of arguments", "command", fs.Name(), "want", nargs, "got", fs.NArg())
		return errUsage
	}
	return nil
}

func lint(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "reload when resources change")
	if err := parse(fs, args, 1, logger); err != nil {
		return err
	}
	dir := fs.Arg(0)
	opts := []registry.Option{registry.WithLogger(logger)}
	report := func(r *registry.Registry, err error) {
		if err != nil {
			logger.Error("statement resources invalid", "dir", dir, "error", err)
			return
		}
		fmt.Fprintf(stdout, "%s: %d statements ok\n", dir, r.Len())
	}
	r, err := registry.Load(ctx, dir, opts...)
	if !*watch {
		if err != nil {
			return err
		}
		report(r, nil)
		return nil
	}
	report(r, err)
	return registry.Watch(ctx, dir, report, opts...)
}

func renderCmd(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	name := fs.String("dialect", "", "dialect used when the statement declares none (default mysql)")
	raw := fs.String("params", "{}", "parameters as a JSON object")
	if err := parse(fs, args, 2, logger); err != nil {
		return err
	}
	params := map[string]any{}
	if err := json.Unmarshal([]byte(*raw), &params); err != nil {
		return fmt.Errorf("parse -params: %w", err)
	}
	r, err := registry.Load(ctx, fs.Arg(0), registry.WithLogger(logger))
	if err != nil {
		return err
	}
	e, err := r.Lookup(fs.Arg(1))
	if err != nil {
		return err
	}
	d, err := dialect.For(firstOf(e.Dialect, *name, dialect.MySQL))
	if err != nil {
		return err
	}
	rendered, err := render.NewText().Render(e.SQL, params)
	if err != nil {
		return err
	}
	paged := d.LimitString(rendered)
	fmt.Fprintf(stdout, "-- dialect: %s\n", d.Name())
	fmt.Fprintf(stdout, "-- rendered\n%s\n", rendered)
	fmt.Fprintf(stdout, "-- single row\n%s\n", d.LimitOne(rendered))
	fmt.Fprintf(stdout, "-- count\n%s\n", d.RowCountSQL(rendered))
	fmt.Fprintf(stdout, "-- paged\n%s\n", paged)

	// Preview the window of the first page with the default size.
	params[dialect.LimitParam], params[dialect.OffsetParam] = 20, 0
	bound, values, err := dsql.Bind(paged, params, d.Placeholder)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "-- bound\n%s\n", bound)
	for i, v := range values {
		fmt.Fprintf(stdout, "-- $%d = %#v\n", i+1, v)
	}
	return nil
}

func bundle(ctx context.Context, args []string, _ io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	out := fs.String("o", "", "output file (required)")
	if err := parse(fs, args, 1, logger); err != nil {
		return err
	}
	if *out == "" {
		logger.Error("missing -o")
		return errUsage
	}
	r, err := registry.Load(ctx, fs.Arg(0), registry.WithLogger(logger))
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := r.WriteBundle(f); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("bundle written", "file", *out, "statements", r.Len())
	return nil
}

func generate(ctx context.Context, args []string, _ io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	out := fs.String("o", "", "output Go file (required)")
	pkg := fs.String("pkg", "", "package name (default: output directory name)")
	if err := parse(fs, args, 1, logger); err != nil {
		return err
	}
	if *out == "" {
		logger.Error("missing -o")
		return errUsage
	}
	r, err := registry.Load(ctx, fs.Arg(0), registry.WithLogger(logger))
	if err != nil {
		return err
	}
	var opts []gen.Option
	if *pkg != "" {
		opts = append(opts, gen.WithPackage(*pkg))
	}
	if err := gen.WriteFile(*out, r, opts...); err != nil {
		return err
	}
	logger.Info("statement constants written", "file", *out, "statements", r.Len())
	return nil
}

// check opens the client described by a configuration file, which
// connects the database driver and loads the registry, then closes it.
func check(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := parse(fs, args, 1, logger); err != nil {
		return err
	}
	cfg, err := client.LoadConfig(fs.Arg(0))
	if err != nil {
		return err
	}
	c, err := client.Open(ctx, cfg, client.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s dialect, %d statements\n", cfg.Driver, c.Dialect().Name(), c.Registry().Len())
	return c.Close()
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
