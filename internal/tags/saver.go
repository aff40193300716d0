package tags

// tagSaver applies metadata to the tags of one file following the write
// plan of its container type. The file is fully loaded when the saver is
// created; no handle stays open afterwards.
type tagSaver struct {
	path     string
	c        container
	plan     []tagStore
	modified bool
}

// newTagSaver opens path and encodes md into every sub-format of the write
// plan. Nothing is written until SaveModifiedTags.
func newTagSaver(t ContainerType, path string, md *TrackMetadata) (*tagSaver, error) {
	c, err := openContainer(t, path)
	if err != nil {
		return nil, err
	}
	s := &tagSaver{path: path, c: c, plan: writePlan(t, c)}
	for _, store := range s.plan {
		if (codec{store}).exportMetadata(md) {
			s.modified = true
		}
	}
	return s, nil
}

// HasModifiedTags reports whether at least one sub-format changed.
func (s *tagSaver) HasModifiedTags() bool {
	return s.modified
}

// SaveModifiedTags writes the modified sub-formats back to the file. Every
// other byte of the file is kept as is.
func (s *tagSaver) SaveModifiedTags() error {
	if !s.modified {
		return nil
	}
	return s.c.save(s.path)
}

// writePlan returns the sub-formats of c that receive metadata.
func writePlan(t ContainerType, c container) []tagStore {
	switch t {
	case MP3:
		// ID3v1 is never written
		return preferPresent(storeOf(c, APE), storeOf(c, ID3v2))
	case FLAC:
		return preferPresent(storeOf(c, ID3v2), storeOf(c, XiphComment))
	case WAV:
		var plan []tagStore
		for _, s := range c.stores() {
			if s.present() && s.writable() {
				plan = append(plan, s)
			}
		}
		if len(plan) == 0 {
			plan = append(plan, storeOf(c, ID3v2))
		}
		return plan
	case AIFF:
		return []tagStore{storeOf(c, ID3v2)}
	}
	return c.stores()
}

// preferPresent writes primary, plus secondary when it exists too, if
// primary is in the file. Otherwise only secondary is written, and created
// if needed.
func preferPresent(primary, secondary tagStore) []tagStore {
	switch {
	case !primary.present():
		return []tagStore{secondary}
	case secondary.present():
		return []tagStore{primary, secondary}
	}
	return []tagStore{primary}
}
