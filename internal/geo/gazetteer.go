package geo

import "sort"

// DefaultGazetteer holds town centroids used when a booking's area is not a
// declared work area, or a work area was saved without coordinates.
var DefaultGazetteer = map[string]Coordinates{
	"Åkersberga":     {Lat: 59.4786, Lng: 18.3002},
	"Täby":           {Lat: 59.4439, Lng: 18.0687},
	"Danderyd":       {Lat: 59.3994, Lng: 18.0270},
	"Solna":          {Lat: 59.3600, Lng: 18.0000},
	"Lidingö":        {Lat: 59.3667, Lng: 18.1333},
	"Nacka":          {Lat: 59.3108, Lng: 18.1636},
	"Värmdö":         {Lat: 59.3167, Lng: 18.3833},
	"Gustavsberg":    {Lat: 59.3260, Lng: 18.3890},
	"Huddinge":       {Lat: 59.2333, Lng: 17.9833},
	"Botkyrka":       {Lat: 59.2000, Lng: 17.8333},
	"Salem":          {Lat: 59.2000, Lng: 17.7667},
	"Södertälje":     {Lat: 59.1958, Lng: 17.6281},
	"Nykvarn":        {Lat: 59.1789, Lng: 17.4313},
	"Haninge":        {Lat: 59.1687, Lng: 18.1443},
	"Tyresö":         {Lat: 59.2442, Lng: 18.2290},
	"Vallentuna":     {Lat: 59.5333, Lng: 18.0833},
	"Upplands Väsby": {Lat: 59.5167, Lng: 17.9167},
	"Sollentuna":     {Lat: 59.4280, Lng: 17.9507},
	"Sundbyberg":     {Lat: 59.3612, Lng: 17.9719},
	"Sigtuna":        {Lat: 59.6167, Lng: 17.7167},
	"Märsta":         {Lat: 59.6217, Lng: 17.8548},
	"Norrtälje":      {Lat: 59.7583, Lng: 18.7000},
	"Rimbo":          {Lat: 59.7442, Lng: 18.3636},
	"Vaxholm":        {Lat: 59.4025, Lng: 18.3513},
	"Stockholm":      {Lat: 59.3293, Lng: 18.0686},
	"Uppsala":        {Lat: 59.8586, Lng: 17.6389},
	"Knivsta":        {Lat: 59.7258, Lng: 17.7869},
	"Enköping":       {Lat: 59.6361, Lng: 17.0777},
	"Göteborg":       {Lat: 57.7089, Lng: 11.9746},
}

// GazetteerNames lists the towns in DefaultGazetteer in a stable order.
func GazetteerNames() []string {
	names := make([]string, 0, len(DefaultGazetteer))
	for name := range DefaultGazetteer {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
