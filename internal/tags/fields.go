package tags

import (
	"strconv"
	"strings"
)

// field is one owned TrackMetadata field. Only owned fields are read,
// written and compared; everything else in a tag is preserved.
type field int

const (
	fieldTitle field = iota
	fieldArtist
	fieldAlbum
	fieldAlbumArtist
	fieldComposer
	fieldGrouping
	fieldGenre
	fieldComment
	fieldYear
	fieldTrackNumber
	fieldTrackTotal
	fieldDiscNumber
	fieldDiscTotal
	fieldBPM
	numFields
)

func (f field) numeric() bool {
	return f >= fieldTrackNumber
}

// fieldSet holds the owned fields found in, or destined for, one tag.
// Absent fields have no entry. Numbers are kept as canonical decimal
// strings so two sets compare equal when the tags carry the same values.
type fieldSet map[field]string

func (fs fieldSet) setText(f field, v string) {
	if v != "" {
		fs[f] = v
	}
}

func (fs fieldSet) setNumber(f field, n int) {
	if n > 0 {
		fs[f] = strconv.Itoa(n)
	}
}

// setRaw stores a value read from a tag. Numbers are canonicalized and a
// number written as "N/M" also provides the matching total unless the tag
// has one of its own.
func (fs fieldSet) setRaw(f field, raw string) {
	if !f.numeric() {
		fs.setText(f, raw)
		return
	}
	num, total := parseNumberPair(raw)
	fs.setNumber(f, num)
	switch f {
	case fieldTrackNumber:
		if _, ok := fs[fieldTrackTotal]; !ok {
			fs.setNumber(fieldTrackTotal, total)
		}
	case fieldDiscNumber:
		if _, ok := fs[fieldDiscTotal]; !ok {
			fs.setNumber(fieldDiscTotal, total)
		}
	}
}

func (fs fieldSet) number(f field) int {
	n, _ := strconv.Atoi(fs[f])
	return n
}

// fieldsOf extracts the owned, non-empty fields of md.
func fieldsOf(md *TrackMetadata) fieldSet {
	fs := make(fieldSet, numFields)
	fs.setText(fieldTitle, md.Title)
	fs.setText(fieldArtist, md.Artist)
	fs.setText(fieldAlbum, md.Album)
	fs.setText(fieldAlbumArtist, md.AlbumArtist)
	fs.setText(fieldComposer, md.Composer)
	fs.setText(fieldGrouping, md.Grouping)
	fs.setText(fieldGenre, md.Genre)
	fs.setText(fieldComment, md.Comment)
	fs.setText(fieldYear, md.Year)
	fs.setNumber(fieldTrackNumber, md.TrackNumber)
	fs.setNumber(fieldTrackTotal, md.TrackTotal)
	fs.setNumber(fieldDiscNumber, md.DiscNumber)
	fs.setNumber(fieldDiscTotal, md.DiscTotal)
	fs.setNumber(fieldBPM, md.BPM)
	return fs
}

// apply copies the fields of fs into md. Fields missing from fs are
// cleared when reset is set and left untouched otherwise.
func (fs fieldSet) apply(md *TrackMetadata, reset bool) {
	text := func(f field, dst *string) {
		if v, ok := fs[f]; ok {
			*dst = v
		} else if reset {
			*dst = ""
		}
	}
	number := func(f field, dst *int) {
		if _, ok := fs[f]; ok {
			*dst = fs.number(f)
		} else if reset {
			*dst = 0
		}
	}
	text(fieldTitle, &md.Title)
	text(fieldArtist, &md.Artist)
	text(fieldAlbum, &md.Album)
	text(fieldAlbumArtist, &md.AlbumArtist)
	text(fieldComposer, &md.Composer)
	text(fieldGrouping, &md.Grouping)
	text(fieldGenre, &md.Genre)
	text(fieldComment, &md.Comment)
	text(fieldYear, &md.Year)
	number(fieldTrackNumber, &md.TrackNumber)
	number(fieldTrackTotal, &md.TrackTotal)
	number(fieldDiscNumber, &md.DiscNumber)
	number(fieldDiscTotal, &md.DiscTotal)
	number(fieldBPM, &md.BPM)
}

// formatPair renders a number and its total the way ID3 TRCK/TPOS and APE
// Track/Disc expect them. The values come from a fieldSet and are either
// empty or canonical.
func formatPair(num, total string) string {
	switch {
	case total == "":
		return num
	case num == "":
		return "0/" + total
	}
	return num + "/" + total
}

// keyMap maps owned fields onto the keys of a key/value tag format. The
// first key of an entry is the one written; later keys are read as
// fallbacks and dropped on write.
type keyMap struct {
	keys map[field][]string
	// trackPair and discPair, when set, store number and total in a single
	// "N/M" value under that key.
	trackPair string
	discPair  string
}

// owns reports whether the format has a place for f.
func (km keyMap) owns(f field) bool {
	if len(km.keys[f]) > 0 {
		return true
	}
	switch f {
	case fieldTrackNumber, fieldTrackTotal:
		return km.trackPair != ""
	case fieldDiscNumber, fieldDiscTotal:
		return km.discPair != ""
	}
	return false
}

// decode reads the owned fields through get, which returns "" for absent
// keys.
func (km keyMap) decode(get func(key string) string) fieldSet {
	fs := make(fieldSet, numFields)
	// Totals first so an explicit total wins over the one embedded in an
	// "N/M" number.
	for _, f := range []field{fieldTrackTotal, fieldDiscTotal} {
		for _, key := range km.keys[f] {
			if v := get(key); v != "" {
				fs.setRaw(f, v)
				break
			}
		}
	}
	for f := range numFields {
		if f == fieldTrackTotal || f == fieldDiscTotal {
			continue
		}
		for _, key := range km.keys[f] {
			if v := get(key); v != "" {
				fs.setRaw(f, v)
				break
			}
		}
	}
	if km.trackPair != "" {
		num, total := parseNumberPair(get(km.trackPair))
		fs.setNumber(fieldTrackNumber, num)
		fs.setNumber(fieldTrackTotal, total)
	}
	if km.discPair != "" {
		num, total := parseNumberPair(get(km.discPair))
		fs.setNumber(fieldDiscNumber, num)
		fs.setNumber(fieldDiscTotal, total)
	}
	return fs
}

// encode writes every owned field through set. An empty value removes the
// key.
func (km keyMap) encode(fs fieldSet, set func(key, value string)) {
	for f := range numFields {
		for i, key := range km.keys[f] {
			if i == 0 {
				set(key, fs[f])
			} else {
				set(key, "")
			}
		}
	}
	if km.trackPair != "" {
		set(km.trackPair, formatPair(fs[fieldTrackNumber], fs[fieldTrackTotal]))
	}
	if km.discPair != "" {
		set(km.discPair, formatPair(fs[fieldDiscNumber], fs[fieldDiscTotal]))
	}
}

// joinValues flattens multi-valued tag entries.
func joinValues(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimRight(v, "\x00"); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, "; ")
}
