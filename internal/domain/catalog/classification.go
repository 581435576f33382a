package catalog

// UseCase is the primary environment bucket a product is recommended for.
type UseCase string

const (
	UseCaseHome       UseCase = "home"
	UseCaseCommercial UseCase = "commercial"
	UseCaseOffice     UseCase = "office"
	UseCaseClub       UseCase = "club"
	UseCaseBoth       UseCase = "both"
	// UseCaseCarAudio is terminal: car audio gear is never offered by the
	// consultation flow, regardless of any other classifier output.
	UseCaseCarAudio UseCase = "car-audio"
)

// IsValid returns true if the use case is a known bucket
func (u UseCase) IsValid() bool {
	switch u {
	case UseCaseHome, UseCaseCommercial, UseCaseOffice, UseCaseClub, UseCaseBoth, UseCaseCarAudio:
		return true
	default:
		return false
	}
}

// ScenarioTag marks a deployment scenario a product suits. A product can
// carry any number of tags; they are assigned independently of each other.
type ScenarioTag string

const (
	ScenarioCommercialBGM ScenarioTag = "commercial-bgm"
	ScenarioHomeCinema    ScenarioTag = "home-cinema"
	ScenarioConference    ScenarioTag = "conference"
	ScenarioWorship       ScenarioTag = "worship"
	ScenarioRestaurant    ScenarioTag = "restaurant"
	ScenarioGym           ScenarioTag = "gym"
	ScenarioClub          ScenarioTag = "club"
)

// MountingType is how a speaker is installed. At most one applies.
type MountingType string

const (
	MountingNone    MountingType = ""
	MountingCeiling MountingType = "ceiling"
	MountingWall    MountingType = "wall"
	MountingFloor   MountingType = "floor"
	MountingInWall  MountingType = "in-wall"
)

// Classification bundles every classifier output for one product.
type Classification struct {
	UseCase      UseCase
	ScenarioTags []ScenarioTag
	MountingType MountingType
	Exclude      bool
}
