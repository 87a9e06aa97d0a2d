package moderation

import (
	"strings"
)

// Classifier is the deterministic content gate: case-folded substring
// containment against a fixed denylist. No tokenization or word-boundary
// checks, so a term embedded in a longer word still matches. It runs on
// message text, captions and resolved media file paths; file bytes are
// never inspected.
type Classifier struct {
	denylist []string
}

var defaultDenylist = []string{
	// explicit content
	"porn", "xxx", "nsfw", "nude", "naked", "sex tape", "onlyfans",
	"hentai", "erotic", "blowjob", "cumshot", "milf", "xvideo", "xnxx",
	"pornhub", "camgirl", "escort service",
	// controlled substances
	"cocaine", "heroin", "meth ", "methamphetamine", "mdma", "ecstasy",
	"lsd tab", "buy drugs", "drug dealer", "weed for sale",
	// violence
	"beheading", "gore video", "snuff film", "kill yourself",
	"how to make a bomb", "mass shooting",
	// slurs and hate
	"nigger", "faggot", "kike", "spic", "chink",
	// exploitation
	"child porn", "cp link", "loli pack", "jailbait", "underage nude",
	"human trafficking",
}

func NewClassifier() *Classifier {
	return &Classifier{denylist: defaultDenylist}
}

// NewClassifierWithDenylist is used by tests and future per-deployment
// term lists.
func NewClassifierWithDenylist(denylist []string) *Classifier {
	return &Classifier{denylist: denylist}
}

// IsFlagged reports whether any denylist term is contained in the
// case-folded input.
func (c *Classifier) IsFlagged(text string) bool {
	if text == "" {
		return false
	}
	folded := strings.ToLower(text)
	for _, term := range c.denylist {
		if strings.Contains(folded, term) {
			return true
		}
	}
	return false
}
