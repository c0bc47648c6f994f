package models

import "time"

type SnapshotKind string

const (
	SnapshotNone     SnapshotKind = ""
	SnapshotRadio    SnapshotKind = "radio"
	SnapshotExternal SnapshotKind = "external"
)

// MediaState is either a radio station, an external playback intent, or
// nothing. Use the setters to keep the two modes exclusive.
type MediaState struct {
	StationName       string    `json:"station_name,omitempty"`
	StationURL        string    `json:"station_url,omitempty"`
	ExternalActive    bool      `json:"external_active"`
	ExternalQuery     string    `json:"external_query,omitempty"`
	ExternalStartedAt time.Time `json:"external_started_at,omitempty"`
}

func (m MediaState) RadioActive() bool {
	return m.StationName != "" && m.StationURL != ""
}

func (m MediaState) Active() bool {
	return m.RadioActive() || m.ExternalActive
}

func (m *MediaState) SetRadio(name, url string) {
	*m = MediaState{StationName: name, StationURL: url}
}

func (m *MediaState) SetExternal(query string, at time.Time) {
	*m = MediaState{ExternalActive: true, ExternalQuery: query, ExternalStartedAt: at}
}

func (m *MediaState) Clear() {
	*m = MediaState{}
}

// PanicSnapshot records what was playing when a panic was entered.
type PanicSnapshot struct {
	Kind        SnapshotKind `json:"kind,omitempty"`
	StationName string       `json:"station_name,omitempty"`
	StationURL  string       `json:"station_url,omitempty"`
	Query       string       `json:"query,omitempty"`
}

func (s PanicSnapshot) Empty() bool {
	return s.Kind == SnapshotNone
}

// RestoreMemory survives panic and suspend cycles so the last station or
// external query can be brought back without a snapshot.
type RestoreMemory struct {
	LastStationName   string `json:"last_station_name,omitempty"`
	LastStationURL    string `json:"last_station_url,omitempty"`
	LastExternalQuery string `json:"last_external_query,omitempty"`
	LastSearchQuery   string `json:"last_search_query,omitempty"`
}

func (r RestoreMemory) HasStation() bool {
	return r.LastStationName != "" && r.LastStationURL != ""
}
