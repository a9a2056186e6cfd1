package model

import "time"

// Topic is a post category.
type Topic struct {
	ID    *int64 `json:"id,omitempty"`
	Title string `json:"title"`
	Slug  string `json:"slug,omitempty"`
	Count *int   `json:"count,omitempty"`

	Raw Raw `json:"raw,omitempty"`
}

// MapTopic builds a Topic view-model from a raw server record.
func MapTopic(raw Raw) Topic {
	t := Topic{Raw: raw}
	if id, ok := raw.Int("id", "topic_id", "category_id"); ok {
		t.ID = int64Ptr(id)
	}
	t.Title, _ = raw.String("title", "name")
	t.Slug, _ = raw.String("slug")
	if count, ok := raw.Int("article_count", "count"); ok {
		t.Count = intPtr(count)
	}
	return t
}

// Event is a community happening surfaced on the home screen.
type Event struct {
	ID       *int64     `json:"id,omitempty"`
	Title    string     `json:"title"`
	Cover    string     `json:"cover,omitempty"`
	Location string     `json:"location,omitempty"`
	StartsAt *time.Time `json:"startsAt,omitempty"`

	Raw Raw `json:"raw,omitempty"`
}

// MapEvent builds an Event view-model from a raw server record.
func MapEvent(raw Raw) Event {
	e := Event{Raw: raw}
	if id, ok := raw.Int("id", "event_id"); ok {
		e.ID = int64Ptr(id)
	}
	e.Title, _ = raw.String("title", "name")
	e.Cover, _ = raw.String("cover", "image", "thumbnail")
	e.Location, _ = raw.String("location", "address")
	if starts, ok := raw.Time("start_at", "start_time", "date"); ok {
		e.StartsAt = &starts
	}
	return e
}
