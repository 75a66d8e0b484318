package relay

// POITag maps a point-of-interest category to the OSM tag the model is told
// to query for it.
type POITag struct {
	Category string
	Key      string
	Value    string
}

// POITags lists the categories the system prompt teaches the model, in prompt order.
var POITags = []POITag{
	{"museums", "tourism", "museum"},
	{"parks", "leisure", "park"},
	{"cafes", "amenity", "cafe"},
	{"restaurants", "amenity", "restaurant"},
	{"hotels", "tourism", "hotel"},
	{"hostels", "tourism", "hostel"},
	{"hospitals", "amenity", "hospital"},
	{"schools", "amenity", "school"},
	{"universities", "amenity", "university"},
	{"supermarkets", "shop", "supermarket"},
	{"bakeries", "shop", "bakery"},
	{"hairdressers", "shop", "hairdresser"},
	{"libraries", "amenity", "library"},
	{"pharmacies", "amenity", "pharmacy"},
	{"banks", "amenity", "bank"},
	{"bars", "amenity", "bar"},
	{"viewpoints", "tourism", "viewpoint"},
	{"gardens", "leisure", "garden"},
	{"sports centres", "leisure", "sports_centre"},
	{"pitches", "leisure", "pitch"},
	{"playgrounds", "leisure", "playground"},
	{"dog parks", "leisure", "dog_park"},
	{"monuments", "historic", "monument"},
	{"stations", "railway", "station"},
	{"parking", "amenity", "parking"},
}

// Tag returns the "key=value" form used in the prompt.
func (t POITag) Tag() string {
	return t.Key + "=" + t.Value
}
