package tags

import (
	"maps"
)

// tagStore is one tag sub-format held in memory by an open container.
type tagStore interface {
	format() SubFormat
	// present reports whether the tag existed in the file when it was opened.
	present() bool
	// writable is false for legacy formats that are read but never written.
	writable() bool
	// owns reports whether the format can store f. Fields it cannot store
	// are ignored on export.
	owns(f field) bool
	decode() fieldSet
	// picture returns the front cover, or the first picture, or nil.
	picture() *CoverImage
	// encode replaces the owned fields, creating the tag if needed.
	encode(fs fieldSet)
	// modified reports whether encode ran since the container was opened.
	modified() bool
}

// codec adapts a tagStore to TrackMetadata.
type codec struct {
	tagStore
}

// importMetadata copies the tag's fields into md. See fieldSet.apply for
// the meaning of reset.
func (c codec) importMetadata(md *TrackMetadata, reset bool) {
	c.decode().apply(md, reset)
}

// importCover fills cover with the tag's picture and reports whether there
// was one.
func (c codec) importCover(cover *CoverImage) bool {
	pic := c.picture()
	if pic == nil || len(pic.Data) == 0 {
		return false
	}
	*cover = *pic
	return true
}

// exportMetadata writes md into the tag and reports whether any owned field
// actually changed. A tag that would end up identical is not touched, and
// an absent tag is not created for empty metadata.
func (c codec) exportMetadata(md *TrackMetadata) bool {
	if !c.writable() {
		return false
	}
	want := fieldsOf(md)
	maps.DeleteFunc(want, func(f field, _ string) bool { return !c.owns(f) })
	if maps.Equal(c.decode(), want) {
		return false
	}
	c.encode(want)
	return true
}

// dirty is embedded by stores to implement modified.
type dirty struct {
	changed bool
}

func (d *dirty) modified() bool { return d.changed }

func (d *dirty) markModified() { d.changed = true }

// picturePriority ranks picture types so the front cover wins. Both ID3v2
// and FLAC use the same picture type numbering.
func picturePriority(pictureType int) int {
	switch pictureType {
	case 3: // front cover
		return 0
	case 0: // other
		return 1
	}
	return 2
}
