package atom

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/get-eventually/go-eventstore-http/event"
)

// Media types used by the remote store.
const (
	MediaTypeAtomJSON = "application/vnd.eventstore.atom+json"
	MediaTypeJSON     = "application/json"
)

type link struct {
	URI      string `json:"uri"`
	Relation string `json:"relation"`
}

// feed is a page of a stream, in the Atom JSON format.
type feed struct {
	Title        string  `json:"title"`
	ID           string  `json:"id"`
	HeadOfStream bool    `json:"headOfStream"`
	Links        []link  `json:"links"`
	Entries      []entry `json:"entries"`
}

// entry is an event in a feed, possibly with its body embedded.
type entry struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Updated             time.Time       `json:"updated"`
	EventID             string          `json:"eventId"`
	EventType           string          `json:"eventType"`
	EventNumber         int64           `json:"eventNumber"`
	PositionEventNumber *int64          `json:"positionEventNumber"`
	Data                json.RawMessage `json:"data"`
	Links               []link          `json:"links"`
}

// document is the Atom JSON representation of a single event.
type document struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Updated time.Time `json:"updated"`
	Content struct {
		EventID     string          `json:"eventId"`
		EventType   string          `json:"eventType"`
		EventNumber int64           `json:"eventNumber"`
		Data        json.RawMessage `json:"data"`
	} `json:"content"`
	Links []link `json:"links"`
}

func linkOf(links []link, relation, fallback string) string {
	for _, l := range links {
		if l.Relation == relation {
			return l.URI
		}
	}

	return fallback
}

// rawData returns the embedded event data: the remote store embeds
// JSON bodies as objects, and any other body as a string.
func rawData(data json.RawMessage) []byte {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		if s, err := strconv.Unquote(string(data)); err == nil {
			return []byte(s)
		}
	}

	return []byte(data)
}

func (e entry) envelope() event.Envelope {
	id, _ := uuid.Parse(e.EventID)

	number := e.EventNumber
	if e.PositionEventNumber != nil {
		// Entries of projected streams link to events of other streams:
		// the position is the one in the stream being read.
		number = *e.PositionEventNumber
	}

	return event.Envelope{
		ID:             id,
		Type:           e.EventType,
		Content:        rawData(e.Data),
		SequenceNumber: number,
		Updated:        e.Updated,
		Link:           linkOf(e.Links, "edit", e.ID),
		Title:          e.Title,
	}
}

func (d document) envelope() event.Envelope {
	id, _ := uuid.Parse(d.Content.EventID)

	return event.Envelope{
		ID:             id,
		Type:           d.Content.EventType,
		Content:        rawData(d.Content.Data),
		SequenceNumber: d.Content.EventNumber,
		Updated:        d.Updated,
		Link:           linkOf(d.Links, "edit", d.ID),
		Title:          d.Title,
	}
}

// envelopes returns the feed entries in ascending sequence number order,
// since feed pages list the most recent events first.
func (f feed) envelopes() []event.Envelope {
	envelopes := make([]event.Envelope, 0, len(f.Entries))
	for _, e := range f.Entries {
		envelopes = append(envelopes, e.envelope())
	}

	sort.Slice(envelopes, func(i, j int) bool {
		return envelopes[i].SequenceNumber < envelopes[j].SequenceNumber
	})

	return envelopes
}
