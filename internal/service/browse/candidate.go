package browse

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/meetbot/internal/repository"
)

const (
	aboutLimit = 300 // runes of "about" shown on a card
	noName     = "No name"
)

// Candidate is a profile card ready for the front end.
type Candidate struct {
	ID          uint64
	Name        string
	Age         int
	City        string
	About       string
	PhotoFileID string
	Photos      []string // filled by Service, main first
	DistanceKM  *float64 // nil when only the city matched
}

func newCandidate(p repository.Profile, dist *float64) Candidate {
	c := Candidate{
		ID:          p.ID,
		Name:        p.Name,
		Age:         p.Age,
		About:       p.About,
		PhotoFileID: p.MainPhoto,
		DistanceKM:  dist,
	}
	if p.City != nil {
		c.City = strings.TrimSpace(*p.City)
	}
	return c
}

// Caption renders the card text in Telegram HTML.
func (c Candidate) Caption() string {
	name := c.Name
	if name == "" {
		name = noName
	}
	header := html.EscapeString(name)
	if c.Age > 0 {
		header += ", " + strconv.Itoa(c.Age)
	}
	if c.City != "" {
		header += ", " + html.EscapeString(c.City)
	}

	parts := []string{"<b>" + header + "</b>"}
	if about := strings.TrimSpace(c.About); about != "" {
		parts = append(parts, html.EscapeString(truncateRunes(about, aboutLimit)))
	}
	if c.DistanceKM != nil {
		parts = append(parts, "📍 ~"+strconv.FormatFloat(*c.DistanceKM, 'f', -1, 64)+" km away")
	}
	return strings.Join(parts, "\n")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
