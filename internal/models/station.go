package models

import "strings"

type Station struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Bitrate   int    `json:"bitrate"`
	Tags      string `json:"tags"`
	StreamURL string `json:"stream_url"`
}

// DirectoryStation is the raw radio-browser record.
type DirectoryStation struct {
	Name        string `json:"name"`
	Country     string `json:"country"`
	Bitrate     int    `json:"bitrate"`
	Tags        string `json:"tags"`
	URL         string `json:"url"`
	URLResolved string `json:"url_resolved"`
}

// ToStation normalizes a directory record and rejects anything that does not
// point at a public http(s) stream.
func (d DirectoryStation) ToStation() (Station, bool) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = "Unnamed Station"
	}
	country := strings.TrimSpace(d.Country)
	if country == "" {
		country = "??"
	}
	tags := strings.TrimSpace(d.Tags)
	if tags == "" {
		tags = "No tags"
	}

	stream := strings.TrimSpace(d.URLResolved)
	if stream == "" {
		stream = strings.TrimSpace(d.URL)
	}
	if stream == "" {
		return Station{}, false
	}

	u := strings.ToLower(stream)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return Station{}, false
	}
	for _, local := range []string{"http://127.", "https://127.", "http://localhost", "https://localhost"} {
		if strings.HasPrefix(u, local) {
			return Station{}, false
		}
	}

	return Station{
		Name:      name,
		Country:   country,
		Bitrate:   d.Bitrate,
		Tags:      tags,
		StreamURL: stream,
	}, true
}
