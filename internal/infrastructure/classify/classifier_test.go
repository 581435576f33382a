package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AudicoSA/audico-sync/internal/domain/catalog"
)

func TestClassify_UseCase(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		product  string
		desc     string
		category string
		expected catalog.UseCase
	}{
		{"home cinema receiver", "7.2 Channel AV Receiver", "Dolby Atmos home theatre receiver", "Receivers", catalog.UseCaseHome},
		{"commercial 100v", "100V Line Mixer Amplifier", "For public address installs", "Commercial Audio", catalog.UseCaseCommercial},
		{"office video bar", "All-in-one Video Bar", "Boardroom conference solution", "Conferencing", catalog.UseCaseOffice},
		{"club line array", "Passive Line Array Element", "For nightclub and stage use", "Pro Audio", catalog.UseCaseClub},
		{"both home and commercial", "Bookshelf Speaker", "Suited to hifi listening or restaurant background music", "Speakers", catalog.UseCaseBoth},
		{"unmatched defaults to home", "Mystery Widget", "", "", catalog.UseCaseHome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.product, tt.desc, tt.category)
			assert.Equal(t, tt.expected, got.UseCase)
		})
	}
}

func TestClassify_CarAudioIsTerminal(t *testing.T) {
	c := New()

	got := c.Classify("12\" Car Subwoofer", "High output car audio subwoofer with wall mount kit", "Car Audio")

	assert.Equal(t, catalog.UseCaseCarAudio, got.UseCase)
	assert.True(t, got.Exclude, "car audio must always be excluded from consultation")
	assert.Empty(t, got.ScenarioTags)
	assert.Equal(t, catalog.MountingNone, got.MountingType)
}

func TestClassify_ScenarioTagsAreIndependent(t *testing.T) {
	c := New()

	got := c.Classify(
		"In-Ceiling Speaker Pair",
		"Background music speaker for restaurant and gym installs",
		"Installation",
	)

	assert.Contains(t, got.ScenarioTags, catalog.ScenarioCommercialBGM)
	assert.Contains(t, got.ScenarioTags, catalog.ScenarioRestaurant)
	assert.Contains(t, got.ScenarioTags, catalog.ScenarioGym)
}

func TestClassify_MountingFirstMatchWins(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		product  string
		expected catalog.MountingType
	}{
		{"ceiling", "6.5\" In-Ceiling Speaker", catalog.MountingCeiling},
		{"in-wall beats wall", "In-Wall LCR Speaker", catalog.MountingInWall},
		{"wall", "On-Wall Surround Speaker", catalog.MountingWall},
		{"floor", "Floorstanding Tower Speaker", catalog.MountingFloor},
		{"none", "Portable Bluetooth Speaker", catalog.MountingNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.product, "", "")
			assert.Equal(t, tt.expected, got.MountingType)
		})
	}
}

func TestClassify_StandExclusionIsWordBounded(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		product  string
		excluded bool
	}{
		{"floorstanding not excluded", "Floorstanding Tower Speaker", false},
		{"standmount not excluded", "Standmount Monitor Speaker", false},
		{"bare stand excluded", "Universal Speaker Stand", true},
		{"plural stands excluded", "Pair of Speaker Stands", true},
		{"bracket excluded", "Speaker Wall Mount Bracket", true},
		{"cable excluded", "2m Speaker Cable", true},
		{"party speaker excluded", "Portable Party Speaker with Lights", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.product, "", "")
			assert.Equal(t, tt.excluded, got.Exclude)
		})
	}
}
