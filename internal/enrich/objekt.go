package enrich

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"objektFeed/internal/model"
)

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)

	combiningMarks = runes.Remove(runes.Predicate(func(r rune) bool {
		return r >= 0x0300 && r <= 0x036f
	}))
)

// Slug turns a collection id into its url form, e.g. "Atom01 HeeJin 322Z" -> "atom01-heejin-322z".
func Slug(collectionID string) string {
	s := strings.ToLower(collectionID)
	stripped, _, err := transform.String(transform.Chain(norm.NFD, combiningMarks), s)
	if err == nil {
		s = stripped
	}
	s = nonSlugChars.ReplaceAllString(s, "")
	return whitespace.ReplaceAllString(s, "-")
}

// OnOffline classifies a collection by its number: online collections carry a Z suffix.
func OnOffline(collectionNo string) string {
	if strings.Contains(collectionNo, "Z") {
		return model.Online
	}
	return model.Offline
}

// accent (background) color fixes for collections whose metadata is wrong
var overrideAccents = map[string]string{
	"divine01-seoyeon-117z": "#B400FF",
	"divine01-seoyeon-118z": "#B400FF",
	"divine01-seoyeon-119z": "#B400FF",
	"divine01-seoyeon-120z": "#B400FF",
	"divine01-seoyeon-317z": "#df2e37",
	"binary01-choerry-201z": "#FFFFFF",
	"binary01-choerry-202z": "#FFFFFF",
	"atom01-yubin-302z":     "#D300BB",
	"atom01-nakyoung-302z":  "#D300BB",
	"atom01-yooyeon-302z":   "#D300BB",
	"atom01-hyerin-302z":    "#D300BB",
}

var overrideFonts = map[string]string{
	"atom01-heejin-322z":  "#FFFFFF",
	"atom01-heejin-323z":  "#FFFFFF",
	"atom01-heejin-324z":  "#FFFFFF",
	"atom01-heejin-325z":  "#FFFFFF",
	"ever01-seoyeon-338z": "#07328D",
}

// overrideKey returns the table key for a collection. The metadata service usually
// includes the collection number in the collection id; when it does not, it is appended.
func overrideKey(slug, collectionNo string) string {
	no := strings.ToLower(strings.TrimSpace(collectionNo))
	if no == "" || strings.HasSuffix(slug, "-"+no) {
		return slug
	}
	return slug + "-" + no
}

// OverrideColors returns the background and text colors to publish for a collection.
func OverrideColors(slug, collectionNo, backgroundColor, textColor string) (string, string) {
	key := overrideKey(slug, collectionNo)
	if accent, ok := overrideAccents[key]; ok {
		backgroundColor = accent
	}
	if font, ok := overrideFonts[key]; ok {
		textColor = font
	}
	return backgroundColor, textColor
}
