// Package podcast holds the podcast, episode and download log records along with
// the rules for binding request input to them and rendering them as response payloads.
package podcast

import "time"

// Podcast owns a set of episodes and their download log
type Podcast struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch stamps the podcast before it is persisted
func (p *Podcast) Touch(now time.Time) {
	stamp(&p.CreatedAt, &p.UpdatedAt, now)
}

// Bind applies input to the podcast and validates the result, see Episode.Bind
func (p *Podcast) Bind(in Input, mode Mode) []string {
	var errs []string
	v, ok := in["name"]
	if ok || mode == Replace {
		p.Name = text(v)
	}
	errs = append(errs, checkLength("name", p.Name)...)
	return errs
}

// stamp sets updated to now, keeping it strictly after its previous value, and fills created once.
func stamp(created, updated *time.Time, now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(*updated) {
		now = updated.Add(time.Microsecond)
	}
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
