package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/tagsync/internal/config"
	"github.com/llehouerou/tagsync/internal/errmsg"
	"github.com/llehouerou/tagsync/internal/tags"
)

var (
	errNoFiles   = errors.New("no files given")
	errSomeFiles = errors.New("some files could not be processed")
)

// Runner holds the state shared by the commands.
type Runner struct {
	logger  *log.Logger
	cfg     *config.Config
	opts    tags.Options
	logFile io.Closer
}

func NewRunner(logger *log.Logger) *Runner {
	return &Runner{logger: logger, cfg: &config.Config{}}
}

// Setup loads the configuration and applies the global flags.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	r.cfg = cfg

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return ctx, errors.New(errmsg.FormatWith(errmsg.OpLogOpen, cfg.Log.File, err))
		}
		r.logger.SetOutput(f)
		r.logFile = f
	}

	level := cfg.LogLevel()
	if name := cmd.String("log-level"); name != "" {
		if level, err = log.ParseLevel(name); err != nil {
			return ctx, fmt.Errorf("--log-level: %w", err)
		}
	}
	r.logger.SetLevel(level)

	r.opts = cfg.TagOptions(r.logger, cmd.Bool("in-place"))
	return ctx, nil
}

// Close releases the log file opened by Setup.
func (r *Runner) Close(context.Context, *cli.Command) error {
	if r.logFile == nil {
		return nil
	}
	err := r.logFile.Close()
	r.logFile = nil
	return err
}

// openSource detects the container type of path and returns its Source.
func (r *Runner) openSource(path string) (*tags.Source, error) {
	t, err := tags.DetectType(path)
	if err != nil {
		return nil, errors.New(errmsg.FormatWith(errmsg.OpDetectType, path, err))
	}
	if t == tags.Unknown {
		return nil, errors.New(errmsg.FormatWith(errmsg.OpDetectType, path, tags.ErrUnsupported))
	}
	return tags.NewSource(path, t, r.opts), nil
}

// uniquePaths returns the cleaned paths without duplicates, keeping the
// first occurrence. Two operations must never run on the same file.
func uniquePaths(args []string) []string {
	seen := make(map[string]bool, len(args))
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		p := filepath.Clean(arg)
		if abs, err := filepath.Abs(p); err == nil {
			if seen[abs] {
				continue
			}
			seen[abs] = true
		}
		paths = append(paths, p)
	}
	return paths
}

// forEach runs fn on every path with at most r.cfg.Workers() calls at a
// time. Failures of one file do not stop the others; the error of each
// file ends up in errs at the file's index.
func (r *Runner) forEach(ctx context.Context, paths []string, fn func(i int, path string) error) []error {
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(i, path)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// report prints per-file errors and folds them into the command error.
func (r *Runner) report(w io.Writer, paths []string, errs []error) error {
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		r.logger.Debug("file failed", "path", paths[i], "err", err)
		fmt.Fprintln(w, errorStyle.Render(err.Error()))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errSomeFiles, failed, len(paths))
	}
	return nil
}

func writerOf(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriterOf(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// Show imports every file and prints its tags in argument order.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	paths := uniquePaths(cmd.Args().Slice())
	if len(paths) == 0 {
		return errNoFiles
	}
	withCover := !cmd.Bool("no-cover")

	views := make([]trackView, len(paths))
	errs := r.forEach(ctx, paths, func(i int, path string) error {
		view, err := r.load(path, withCover)
		if err != nil {
			return err
		}
		views[i] = view
		return nil
	})

	out := writerOf(cmd)
	for i, view := range views {
		if errs[i] == nil {
			fmt.Fprintln(out, renderTrack(view))
		}
	}
	return r.report(errWriterOf(cmd), paths, errs)
}

// load imports path into a trackView.
func (r *Runner) load(path string, withCover bool) (trackView, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return trackView{}, errors.New(errmsg.FormatWith(errmsg.OpFileStat, path, err))
	}
	src, err := r.openSource(path)
	if err != nil {
		return trackView{}, err
	}

	view := trackView{Path: path, Type: src.Type(), Size: fi.Size()}
	var cover *tags.CoverImage
	if withCover {
		cover = &tags.CoverImage{}
	}
	res, synced := src.ImportTrackMetadataAndCoverImage(&view.Metadata, cover, true)
	switch res {
	case tags.ImportSucceeded:
		view.Tagged = true
		view.Synced = synced
		if cover != nil && len(cover.Data) > 0 {
			view.Cover = cover
		}
	case tags.ImportUnavailable:
		// untagged files are still listed
	default:
		return trackView{}, errors.New(errmsg.FormatImport(path, res))
	}
	return view, nil
}

// Set imports every file, overrides the flagged fields and exports the
// result.
func (r *Runner) Set(ctx context.Context, cmd *cli.Command) error {
	paths := uniquePaths(cmd.Args().Slice())
	if len(paths) == 0 {
		return errNoFiles
	}

	edit := fieldEdit(cmd)
	out := writerOf(cmd)
	changed := make([]bool, len(paths))
	errs := r.forEach(ctx, paths, func(i int, path string) error {
		var err error
		changed[i], err = r.update(path, edit)
		return err
	})
	for i, err := range errs {
		switch {
		case err != nil:
		case changed[i]:
			fmt.Fprintln(out, okStyle.Render("updated ")+paths[i])
		default:
			fmt.Fprintln(out, dimStyle.Render("unchanged ")+paths[i])
		}
	}
	return r.report(errWriterOf(cmd), paths, errs)
}

// update runs one import/edit/export cycle on path. It reports false
// without exporting when the edit leaves the imported metadata as it was.
func (r *Runner) update(path string, edit func(md *tags.TrackMetadata)) (bool, error) {
	src, err := r.openSource(path)
	if err != nil {
		return false, err
	}

	var md tags.TrackMetadata
	res, _ := src.ImportTrackMetadataAndCoverImage(&md, nil, true)
	if res == tags.ImportFailed {
		return false, errors.New(errmsg.FormatImport(path, res))
	}
	before := md
	edit(&md)
	if md == before {
		r.logger.Debug("metadata unchanged", "path", path)
		return false, nil
	}

	if res, _ := src.ExportTrackMetadata(&md); res != tags.ExportSucceeded {
		return false, errors.New(errmsg.FormatExport(path, res))
	}
	return true, nil
}

// fieldEdit returns an edit applying the flags given on the command line.
// Flags are read once, before any file is processed.
func fieldEdit(cmd *cli.Command) func(md *tags.TrackMetadata) {
	var edits []func(md *tags.TrackMetadata)
	for _, f := range stringFields {
		if cmd.IsSet(f.name) {
			v := cmd.String(f.name)
			edits = append(edits, func(md *tags.TrackMetadata) { *f.field(md) = v })
		}
	}
	for _, f := range intFields {
		if cmd.IsSet(f.name) {
			v := cmd.Int(f.name)
			edits = append(edits, func(md *tags.TrackMetadata) { *f.field(md) = v })
		}
	}

	return func(md *tags.TrackMetadata) {
		for _, edit := range edits {
			edit(md)
		}
	}
}

type stringFlagField struct {
	name  string
	field func(md *tags.TrackMetadata) *string
}

type intFlagField struct {
	name  string
	field func(md *tags.TrackMetadata) *int
}

var stringFields = []stringFlagField{
	{"title", func(md *tags.TrackMetadata) *string { return &md.Title }},
	{"artist", func(md *tags.TrackMetadata) *string { return &md.Artist }},
	{"album", func(md *tags.TrackMetadata) *string { return &md.Album }},
	{"album-artist", func(md *tags.TrackMetadata) *string { return &md.AlbumArtist }},
	{"composer", func(md *tags.TrackMetadata) *string { return &md.Composer }},
	{"grouping", func(md *tags.TrackMetadata) *string { return &md.Grouping }},
	{"genre", func(md *tags.TrackMetadata) *string { return &md.Genre }},
	{"comment", func(md *tags.TrackMetadata) *string { return &md.Comment }},
	{"year", func(md *tags.TrackMetadata) *string { return &md.Year }},
}

var intFields = []intFlagField{
	{"track", func(md *tags.TrackMetadata) *int { return &md.TrackNumber }},
	{"track-total", func(md *tags.TrackMetadata) *int { return &md.TrackTotal }},
	{"disc", func(md *tags.TrackMetadata) *int { return &md.DiscNumber }},
	{"disc-total", func(md *tags.TrackMetadata) *int { return &md.DiscTotal }},
	{"bpm", func(md *tags.TrackMetadata) *int { return &md.BPM }},
}
