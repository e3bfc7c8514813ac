package kml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name       string        `xml:"name"`
	LineString kmlLineString `xml:"LineString"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

// Encode renders lines as a KML 2.2 document.
func Encode(name string, lines []Line) (string, error) {
	root := kmlRoot{
		Xmlns:    kmlNamespace,
		Document: kmlDocument{Name: name},
	}
	for _, l := range lines {
		coords := make([]string, len(l.Points))
		for i, p := range l.Points {
			// KML orders coordinates lon,lat,alt
			coords[i] = fmt.Sprintf("%.6f,%.6f,0", p.Longitude, p.Latitude)
		}
		root.Document.Placemarks = append(root.Document.Placemarks, kmlPlacemark{
			Name:       l.Name,
			LineString: kmlLineString{Tessellate: 1, Coordinates: strings.Join(coords, " ")},
		})
	}

	out, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode kml: %w", err)
	}
	return xml.Header + string(out), nil
}
