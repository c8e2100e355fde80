package pdn

import "strings"

// TagName identifies a recognized PDN tag.
type TagName int

const (
	EventTag TagName = iota
	SiteTag
	DateTag
	RoundTag
	WhiteTag
	BlackTag
	ResultTag
	GameTypeTag
	SetupTag
	FENTag
	PlyCountTag

	// Optional tags, kept but not part of the canonical block.
	AnnotatorTag
	TimeTag
	TimeControlTag
	TerminationTag
	ModeTag

	numTags // sentinel, must be last
)

// requiredTags is the length of the leading block that is always emitted.
const requiredTags = int(ResultTag) + 1

// UnknownValue marks a tag whose value is not known.
const UnknownValue = "?"

var tagNames = [numTags]string{
	EventTag:       "Event",
	SiteTag:        "Site",
	DateTag:        "Date",
	RoundTag:       "Round",
	WhiteTag:       "White",
	BlackTag:       "Black",
	ResultTag:      "Result",
	GameTypeTag:    "GameType",
	SetupTag:       "Setup",
	FENTag:         "FEN",
	PlyCountTag:    "PlyCount",
	AnnotatorTag:   "Annotator",
	TimeTag:        "Time",
	TimeControlTag: "TimeControl",
	TerminationTag: "Termination",
	ModeTag:        "Mode",
}

var tagsByLower = func() map[string]TagName {
	m := make(map[string]TagName, numTags)
	for i, name := range tagNames {
		m[strings.ToLower(name)] = TagName(i)
	}
	return m
}()

// String returns the canonical casing of the tag name.
func (t TagName) String() string {
	if t < 0 || t >= numTags {
		return "Unknown"
	}
	return tagNames[t]
}

// Canonical reports whether the tag belongs to the canonical emission block.
func (t TagName) Canonical() bool {
	return t >= EventTag && t <= PlyCountTag
}

// Required reports whether the tag is always emitted, as UnknownValue when
// unset.
func (t TagName) Required() bool {
	return t >= EventTag && int(t) < requiredTags
}

// LookupTag resolves a tag name case-insensitively.
func LookupTag(name string) (TagName, bool) {
	t, ok := tagsByLower[strings.ToLower(name)]
	return t, ok
}

// ExtraTag is a tag outside the recognized vocabulary.
type ExtraTag struct {
	Name  string
	Value string
}
