package file_generators

import (
	"github.com/muktihari/fit/profile/typedef"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

type fitSport struct {
	sport    typedef.Sport
	subSport typedef.SubSport
}

var sportByType = map[activity.ActivityType]fitSport{
	activity.ActivityTypeRunning:            {typedef.SportRunning, typedef.SubSportGeneric},
	activity.ActivityTypeCycling:            {typedef.SportCycling, typedef.SubSportGeneric},
	activity.ActivityTypeMountainBiking:     {typedef.SportCycling, typedef.SubSportMountain},
	activity.ActivityTypeWalking:            {typedef.SportWalking, typedef.SubSportGeneric},
	activity.ActivityTypeHiking:             {typedef.SportHiking, typedef.SubSportGeneric},
	activity.ActivityTypeDownhillSkiing:     {typedef.SportAlpineSkiing, typedef.SubSportGeneric},
	activity.ActivityTypeCrossCountrySkiing: {typedef.SportCrossCountrySkiing, typedef.SubSportGeneric},
	activity.ActivityTypeSnowboarding:       {typedef.SportSnowboarding, typedef.SubSportGeneric},
	activity.ActivityTypeSkating:            {typedef.SportIceSkating, typedef.SubSportGeneric},
	activity.ActivityTypeSwimming:           {typedef.SportSwimming, typedef.SubSportGeneric},
	activity.ActivityTypeRowing:             {typedef.SportRowing, typedef.SubSportGeneric},
	activity.ActivityTypeElliptical:         {typedef.SportFitnessEquipment, typedef.SubSportElliptical},
	activity.ActivityTypeGym:                {typedef.SportTraining, typedef.SubSportGeneric},
	activity.ActivityTypeClimbing:           {typedef.SportRockClimbing, typedef.SubSportGeneric},
	activity.ActivityTypeStrengthTraining:   {typedef.SportTraining, typedef.SubSportStrengthTraining},
}

// MapActivityType returns the FIT sport pair for a canonical type. Types the
// FIT profile has no sport for are written as generic.
func MapActivityType(t activity.ActivityType) (typedef.Sport, typedef.SubSport) {
	if s, ok := sportByType[t]; ok {
		return s.sport, s.subSport
	}
	return typedef.SportGeneric, typedef.SubSportGeneric
}
