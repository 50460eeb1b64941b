package model

// NodeRole tags what a graph node represents on the ground.
type NodeRole string

const (
	RoleIntersection NodeRole = "intersection"
	RoleHospital     NodeRole = "hospital"
	RoleDepot        NodeRole = "depot"
)

// RoadClass is the OSM-style functional class of a road segment.
type RoadClass string

const (
	RoadMotorway     RoadClass = "motorway"
	RoadTrunk        RoadClass = "trunk"
	RoadPrimary      RoadClass = "primary"
	RoadSecondary    RoadClass = "secondary"
	RoadTertiary     RoadClass = "tertiary"
	RoadResidential  RoadClass = "residential"
	RoadUnclassified RoadClass = "unclassified"
)

// roadClassSpeeds maps road class to the default free-flow speed in km/h,
// used when a dataset carries no per-edge speed.
var roadClassSpeeds = map[RoadClass]float64{
	RoadMotorway:     100,
	RoadTrunk:        90,
	RoadPrimary:      70,
	RoadSecondary:    50,
	RoadTertiary:     40,
	RoadResidential:  30,
	RoadUnclassified: 30,
}

// roadClassDurability scores how resistant a class of road is to seismic
// damage; engineered arterials fare better than residential streets.
var roadClassDurability = map[RoadClass]float64{
	RoadMotorway:     1.0,
	RoadTrunk:        0.9,
	RoadPrimary:      0.8,
	RoadSecondary:    0.7,
	RoadTertiary:     0.6,
	RoadResidential:  0.4,
	RoadUnclassified: 0.3,
}

// DefaultSpeedKmh returns the free-flow speed for the class.
func (c RoadClass) DefaultSpeedKmh() float64 {
	if v, ok := roadClassSpeeds[c]; ok {
		return v
	}
	return roadClassSpeeds[RoadUnclassified]
}

// Durability returns the damage-resistance score in [0, 1].
func (c RoadClass) Durability() float64 {
	if v, ok := roadClassDurability[c]; ok {
		return v
	}
	return 0.5
}

// Known reports whether the class is one of the closed set.
func (c RoadClass) Known() bool {
	_, ok := roadClassSpeeds[c]
	return ok
}

// SoilClass is a coarse ground classification affecting shake amplification.
type SoilClass string

const (
	SoilRock     SoilClass = "rock"
	SoilStiff    SoilClass = "stiff"
	SoilSoft     SoilClass = "soft"
	SoilLandfill SoilClass = "landfill"
)

// Amplification returns the damage-probability multiplier for the soil class.
// Soft ground and landfill amplify shaking; rock attenuates it.
func (s SoilClass) Amplification() float64 {
	switch s {
	case SoilRock:
		return 0.8
	case SoilStiff:
		return 1.0
	case SoilSoft:
		return 1.15
	case SoilLandfill:
		return 1.3
	default:
		return 1.0
	}
}
