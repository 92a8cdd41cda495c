package model

// Record is one row of the tagged-posts corpus. A post carries several tags;
// each tag is its own row and TagPosition ranks it within the post.
type Record struct {
	PostID      string `csv:"post_id"`
	TagName     string `csv:"tag_name"`
	TagID       int64  `csv:"tag_id"`
	TagPosition int    `csv:"tag_position"`
	Title       string `csv:"title"`
}

// PrimaryPosition is the TagPosition of a post's main tag.
const PrimaryPosition = 0

// IsPrimary reports whether the record holds the post's primary tag.
func (r Record) IsPrimary() bool {
	return r.TagPosition == PrimaryPosition
}

// Sample is a (text, label) pair used for training and evaluation.
type Sample struct {
	Text  string
	Label string
}
