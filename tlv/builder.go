package tlv

// Builder assembles a request sequence one typed value at a time, enforcing
// single-valued tags.
type Builder struct {
	tlvs Tlvs
	seen map[Tag]bool
}

func NewBuilder() *Builder {
	return &Builder{
		tlvs: make(Tlvs, 0),
		seen: make(map[Tag]bool),
	}
}

// Append encodes value under tag and adds the record to the sequence.
// Appending a single-valued tag twice fails with DuplicateTagError.
// Multi-valued tags may repeat and produce one record per append.
func (b *Builder) Append(tag Tag, value interface{}) error {
	if b.seen[tag] && SingleValued(tag) {
		return &DuplicateTagError{Tag: tag}
	}

	t, err := Encode(tag, value)
	if err != nil {
		return err
	}

	b.tlvs = append(b.tlvs, t)
	b.seen[tag] = true

	return nil
}

// AppendRaw adds a pre-built record, bypassing type checks but not the
// single-valued constraint.
func (b *Builder) AppendRaw(t Tlv) error {
	if b.seen[t.Tag] && SingleValued(t.Tag) {
		return &DuplicateTagError{Tag: t.Tag}
	}

	b.tlvs = append(b.tlvs, t)
	b.seen[t.Tag] = true

	return nil
}

// Tlvs returns the assembled sequence in append order.
func (b *Builder) Tlvs() Tlvs {
	return b.tlvs
}
