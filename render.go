package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/tagsync/internal/tags"
)

var (
	pathStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	trackStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// trackView is what show prints for one file.
type trackView struct {
	Path     string
	Type     tags.ContainerType
	Size     int64
	Tagged   bool
	Synced   time.Time
	Metadata tags.TrackMetadata
	Cover    *tags.CoverImage
}

func renderTrack(v trackView) string {
	var b strings.Builder
	b.WriteString(pathStyle.Render(v.Path))
	b.WriteString("\n")

	info := v.Type.String() + ", " + humanize.IBytes(uint64(max(v.Size, 0)))
	if v.Tagged {
		info += ", modified " + humanize.Time(v.Synced)
	}
	b.WriteString(dimStyle.Render(info))

	if audio := formatAudio(v.Metadata.Audio); audio != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(audio))
	}

	if !v.Tagged {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("no tags"))
		return trackStyle.Render(b.String())
	}

	rows := metadataRows(&v.Metadata)
	if v.Cover != nil {
		rows = append(rows, [2]string{
			"Cover",
			v.Cover.MIMEType + ", " + humanize.IBytes(uint64(len(v.Cover.Data))),
		})
	}
	if len(rows) > 0 {
		b.WriteString("\n")
	}
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(row[0]))
		b.WriteString(row[1])
	}
	return trackStyle.Render(b.String())
}

// metadataRows lists the non-empty fields of md as label/value pairs.
func metadataRows(md *tags.TrackMetadata) [][2]string {
	var rows [][2]string
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, [2]string{label, value})
		}
	}
	add("Title", md.Title)
	add("Artist", md.Artist)
	add("Album", md.Album)
	add("Album artist", md.AlbumArtist)
	add("Composer", md.Composer)
	add("Grouping", md.Grouping)
	add("Genre", md.Genre)
	add("Year", md.Year)
	add("Track", formatPosition(md.TrackNumber, md.TrackTotal))
	add("Disc", formatPosition(md.DiscNumber, md.DiscTotal))
	if md.BPM > 0 {
		add("BPM", strconv.Itoa(md.BPM))
	}
	add("Comment", md.Comment)
	return rows
}

// formatPosition renders "3/12", "3" or "?/12".
func formatPosition(num, total int) string {
	switch {
	case num == 0 && total == 0:
		return ""
	case total == 0:
		return strconv.Itoa(num)
	case num == 0:
		return "?/" + strconv.Itoa(total)
	}
	return fmt.Sprintf("%d/%d", num, total)
}

// formatAudio renders the stream properties, e.g.
// "FLAC 44.1 kHz 16 bit stereo 3:25".
func formatAudio(a tags.AudioInfo) string {
	var parts []string
	if a.Format != "" {
		parts = append(parts, a.Format)
	}
	if a.SampleRate > 0 {
		parts = append(parts, strconv.FormatFloat(float64(a.SampleRate)/1000, 'f', -1, 64)+" kHz")
	}
	if a.BitDepth > 0 {
		parts = append(parts, strconv.Itoa(a.BitDepth)+" bit")
	}
	switch a.Channels {
	case 0:
	case 1:
		parts = append(parts, "mono")
	case 2:
		parts = append(parts, "stereo")
	default:
		parts = append(parts, strconv.Itoa(a.Channels)+" ch")
	}
	if a.Bitrate > 0 {
		parts = append(parts, strconv.Itoa(a.Bitrate)+" kbps")
	}
	if a.Duration > 0 {
		parts = append(parts, formatDuration(a.Duration))
	}
	return strings.Join(parts, " ")
}

// formatDuration formats a duration as MM:SS or H:MM:SS.
func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
