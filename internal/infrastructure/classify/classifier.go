// Package classify assigns recommendation metadata to products from their
// free-text name, description and category. Matching is ordered,
// case-insensitive keyword matching; the rules mirror how the consultation
// flow buckets audio gear.
package classify

import (
	"regexp"
	"strings"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
)

// carAudioKeywords force the terminal car-audio bucket. Car audio gear is
// never offered by the consultation flow.
var carAudioKeywords = []string{
	"car audio", "car speaker", "car amplifier", "car subwoofer",
	"head unit", "marine audio", "dash cam", "car stereo",
}

type useCaseRule struct {
	useCase  catalog.UseCase
	keywords []string
}

// useCaseRules are evaluated in order; the first rule with a hit wins,
// except that hits in both the home and commercial groups yield "both".
var useCaseRules = []useCaseRule{
	{catalog.UseCaseClub, []string{"dj ", " dj", "nightclub", "club speaker", "line array", "stage monitor"}},
	{catalog.UseCaseOffice, []string{"conference", "boardroom", "huddle", "video bar", "speakerphone"}},
	{catalog.UseCaseCommercial, []string{"100v", "70v", "commercial", "pa system", "public address", "background music", "restaurant", "retail", "horn speaker"}},
	{catalog.UseCaseHome, []string{"home theatre", "home theater", "home cinema", "hifi", "hi-fi", "bookshelf", "floorstanding", "soundbar", "turntable", "av receiver", "stereo amplifier"}},
}

type scenarioRule struct {
	tag      catalog.ScenarioTag
	keywords []string
}

// scenarioRules are independent; a product can carry several tags.
var scenarioRules = []scenarioRule{
	{catalog.ScenarioCommercialBGM, []string{"background music", "bgm", "100v", "70v", "in-ceiling", "ceiling speaker"}},
	{catalog.ScenarioHomeCinema, []string{"home cinema", "home theatre", "home theater", "av receiver", "subwoofer", "soundbar", "atmos"}},
	{catalog.ScenarioConference, []string{"conference", "boardroom", "speakerphone", "video bar", "microphone array"}},
	{catalog.ScenarioWorship, []string{"worship", "church", "choir", "pulpit"}},
	{catalog.ScenarioRestaurant, []string{"restaurant", "cafe", "hospitality", "bar audio"}},
	{catalog.ScenarioGym, []string{"gym", "fitness", "studio audio", "spinning"}},
	{catalog.ScenarioClub, []string{"nightclub", "dj ", "line array", "club sound"}},
}

type mountingRule struct {
	mounting catalog.MountingType
	keywords []string
}

// mountingRules are evaluated in order; first match wins and at most one
// mounting type applies. In-wall outranks wall so "in-wall speaker" does not
// land in the wall bucket via substring overlap.
var mountingRules = []mountingRule{
	{catalog.MountingInWall, []string{"in-wall", "in wall", "flush mount"}},
	{catalog.MountingCeiling, []string{"ceiling", "in-ceiling"}},
	{catalog.MountingWall, []string{"wall mount", "wall-mount", "on-wall", "wall bracket", "wall speaker"}},
	{catalog.MountingFloor, []string{"floorstanding", "floor standing", "tower speaker"}},
}

// exclusionKeywords flag accessories and non-consultation stock. "stand" is
// handled separately with word-boundary matching so floorstanding and
// standmount products are not caught.
var exclusionKeywords = []string{
	"cable", "bracket", "adaptor", "adapter", "connector", "interconnect",
	"party speaker", "karaoke",
}

// standPattern matches "stand"/"stands" as whole words only.
var standPattern = regexp.MustCompile(`\bstands?\b`)

// Classifier derives recommendation metadata for unified products.
type Classifier struct{}

// New creates a classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify runs every rule set against the concatenated name, description and
// category of a product.
func (c *Classifier) Classify(name, description, category string) catalog.Classification {
	text := strings.ToLower(name + " " + description + " " + category)

	if containsAny(text, carAudioKeywords) {
		// Terminal: no scenario or mounting metadata is assigned either,
		// downstream never recommends car audio.
		return catalog.Classification{
			UseCase: catalog.UseCaseCarAudio,
			Exclude: true,
		}
	}

	return catalog.Classification{
		UseCase:      c.useCase(text),
		ScenarioTags: c.scenarioTags(text),
		MountingType: c.mountingType(text),
		Exclude:      c.excluded(text),
	}
}

func (c *Classifier) useCase(text string) catalog.UseCase {
	var matched []catalog.UseCase
	for _, rule := range useCaseRules {
		if containsAny(text, rule.keywords) {
			matched = append(matched, rule.useCase)
		}
	}
	switch len(matched) {
	case 0:
		return catalog.UseCaseHome
	case 1:
		return matched[0]
	default:
		if hasBoth(matched, catalog.UseCaseHome, catalog.UseCaseCommercial) {
			return catalog.UseCaseBoth
		}
		return matched[0]
	}
}

func (c *Classifier) scenarioTags(text string) []catalog.ScenarioTag {
	var tags []catalog.ScenarioTag
	for _, rule := range scenarioRules {
		if containsAny(text, rule.keywords) {
			tags = append(tags, rule.tag)
		}
	}
	return tags
}

func (c *Classifier) mountingType(text string) catalog.MountingType {
	for _, rule := range mountingRules {
		if containsAny(text, rule.keywords) {
			return rule.mounting
		}
	}
	return catalog.MountingNone
}

func (c *Classifier) excluded(text string) bool {
	if containsAny(text, exclusionKeywords) {
		return true
	}
	return standPattern.MatchString(text)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func hasBoth(matched []catalog.UseCase, a, b catalog.UseCase) bool {
	var foundA, foundB bool
	for _, m := range matched {
		if m == a {
			foundA = true
		}
		if m == b {
			foundB = true
		}
	}
	return foundA && foundB
}
