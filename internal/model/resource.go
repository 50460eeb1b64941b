package model

// ResourceType is the closed set of emergency vehicle types.
type ResourceType string

const (
	ResourceAmbulance   ResourceType = "ambulance"
	ResourceFireTruck   ResourceType = "fire_truck"
	ResourceRescue      ResourceType = "rescue"
	ResourceSupplyTruck ResourceType = "supply_truck"
)

// NeedKind is the closed set of demands a zone can raise.
type NeedKind string

const (
	NeedMedical NeedKind = "medical"
	NeedFire    NeedKind = "fire"
	NeedSearch  NeedKind = "search"
	NeedSupply  NeedKind = "supply"
)

// resourceSpeeds is the nominal top speed per vehicle type in km/h.
var resourceSpeeds = map[ResourceType]float64{
	ResourceAmbulance:   60,
	ResourceFireTruck:   50,
	ResourceRescue:      45,
	ResourceSupplyTruck: 40,
}

// capabilities maps each resource type to the needs it can serve, in order of
// preference. The first entry is the exact capability; later entries are
// fallbacks that rank below an exact match when breaking cost ties.
var capabilities = map[ResourceType][]NeedKind{
	ResourceAmbulance:   {NeedMedical},
	ResourceFireTruck:   {NeedFire},
	ResourceRescue:      {NeedSearch, NeedMedical},
	ResourceSupplyTruck: {NeedSupply},
}

// SpeedKmh returns the vehicle's nominal top speed.
func (t ResourceType) SpeedKmh() float64 {
	if v, ok := resourceSpeeds[t]; ok {
		return v
	}
	return 40
}

// Known reports whether t is one of the closed set.
func (t ResourceType) Known() bool {
	_, ok := resourceSpeeds[t]
	return ok
}

// Serves reports whether the type can serve the need at all, and whether it is
// the type's primary capability.
func (t ResourceType) Serves(need NeedKind) (serves, exact bool) {
	caps := capabilities[t]
	for i, c := range caps {
		if c == need {
			return true, i == 0
		}
	}
	return false, false
}

// ResourceStatus is the lifecycle state of a resource.
type ResourceStatus string

const (
	StatusAvailable ResourceStatus = "available"
	StatusAssigned  ResourceStatus = "assigned"
)

// Resource is an emergency vehicle known to the engine.
type Resource struct {
	ID         string         `json:"resource_id"`
	Type       ResourceType   `json:"resource_type"`
	NodeID     int64          `json:"node_id"`
	Location   LatLon         `json:"location"`
	Status     ResourceStatus `json:"status"`
	TargetZone string         `json:"assigned_zone,omitempty"`
}

// Zone is a geographic demand unit for resource allocation.
type Zone struct {
	ID       string   `json:"zone_id"`
	Center   LatLon   `json:"center"`
	RadiusM  float64  `json:"radius_m"`
	Severity Severity `json:"severity"`
	// Urgency in [0, 1] orders zones for greedy allocation.
	Urgency float64 `json:"urgency"`
	// Need narrows which resource types qualify. Empty means any type.
	Need NeedKind `json:"need,omitempty"`
}
