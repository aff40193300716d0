// Test program that imports the tags of every audio file below a directory
// and logs the fields read from each one.
package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/tagsync/internal/tags"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if len(os.Args) != 2 {
		logger.Fatal("usage: testimport DIR")
	}
	root := os.Args[1]

	files, err := getSourceFiles(root)
	if err != nil {
		logger.Fatal("Failed to read source directory", "err", err)
	}
	logger.Info("Found source files", "count", len(files))

	// quiet source logger, only warnings are interesting here
	srcLogger := logger.WithPrefix("tags")
	srcLogger.SetLevel(log.WarnLevel)

	counts := map[tags.ImportResult]int{}
	start := time.Now()
	for _, file := range files {
		t, err := tags.DetectType(file)
		if err != nil {
			logger.Error("Failed to detect type", "path", file, "err", err)
			counts[tags.ImportFailed]++
			continue
		}

		var md tags.TrackMetadata
		var cover tags.CoverImage
		src := tags.NewSource(file, t, tags.Options{Logger: srcLogger})
		res, synced := src.ImportTrackMetadataAndCoverImage(&md, &cover, true)
		counts[res]++

		if res != tags.ImportSucceeded {
			logger.Warn("Import "+res.String(), "path", file, "type", t)
			continue
		}
		logger.Info(filepath.Base(file),
			"type", t,
			"title", md.Title,
			"artist", md.Artist,
			"album", md.Album,
			"track", md.TrackNumber,
			"cover", len(cover.Data),
			"duration", md.Audio.Duration.Round(time.Second),
			"modified", synced.Format(time.RFC3339),
		)
	}

	logger.Info("Import complete",
		"succeeded", counts[tags.ImportSucceeded],
		"unavailable", counts[tags.ImportUnavailable],
		"failed", counts[tags.ImportFailed],
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// getSourceFiles returns the sorted list of audio files below dir
func getSourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && tags.IsMusicFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
