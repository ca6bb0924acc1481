// Package holidays expands a table of yearly public holidays into dates.
package holidays

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

var ErrInvalidRule = errors.New("invalid holiday rule")

// Easter falls between March 22 and April 25. Offsets outside these bounds
// leave the year for some Easter dates.
const (
	minEasterOffset = -80
	maxEasterOffset = 250
)

//go:embed portugal.yaml
var portugal []byte

type Holiday struct {
	Date date.Day `json:"date"`
	Name string   `json:"name"`
}

// Rule is either a fixed month and day, or an offset in days from Easter Sunday.
type Rule struct {
	Name   string `yaml:"name"`
	Month  int    `yaml:"month"`
	Day    int    `yaml:"day"`
	Easter *int   `yaml:"easter"`
}

type table struct {
	Name     string `yaml:"name"`
	Holidays []Rule `yaml:"holidays"`
}

type Calendar struct {
	name  string
	rules []Rule

	mu    sync.Mutex
	years map[int]map[date.Day]string
}

// Load parses a YAML holiday table.
func Load(data []byte) (*Calendar, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse holidays: %w", err)
	}
	for _, r := range t.Holidays {
		if err := r.validate(); err != nil {
			return nil, err
		}
	}
	return &Calendar{name: t.Name, rules: t.Holidays, years: make(map[int]map[date.Day]string)}, nil
}

// Default returns the embedded Portuguese holidays.
func Default() *Calendar {
	c, err := Load(portugal)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Calendar) Name() string {
	return c.name
}

// Between returns the holidays from first to last inclusive, ordered by date.
func (c *Calendar) Between(first, last date.Day) []Holiday {
	holidays := make([]Holiday, 0)
	if last.Before(first) {
		return holidays
	}
	for year := first.Year(); year <= last.Year(); year++ {
		for day, name := range c.year(year) {
			if !day.Before(first) && !day.After(last) {
				holidays = append(holidays, Holiday{Date: day, Name: name})
			}
		}
	}
	sort.Slice(holidays, func(i, j int) bool {
		if holidays[i].Date.Equal(holidays[j].Date) {
			return holidays[i].Name < holidays[j].Name
		}
		return holidays[i].Date.Before(holidays[j].Date)
	})
	return holidays
}

// Holiday returns the name of the holiday on day, if there is one.
func (c *Calendar) Holiday(day date.Day) (string, bool) {
	name, ok := c.year(day.Year())[day]
	return name, ok
}

func (c *Calendar) year(year int) map[date.Day]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if days, ok := c.years[year]; ok {
		return days
	}
	days := make(map[date.Day]string, len(c.rules))
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	for _, r := range c.rules {
		rule, err := rrule.NewRRule(r.option(start))
		if err != nil {
			log.Errorf("holiday %q skipped in %d: %v", r.Name, year, err)
			continue
		}
		for _, t := range rule.Between(start, end, true) {
			days[date.Of(t)] = r.Name
		}
	}
	c.years[year] = days
	return days
}

// validate checks that the rule names a real day: a fixed date must exist in
// a leap year and an Easter offset must stay within a year.
func (r Rule) validate() error {
	if r.Name == "" {
		return fmt.Errorf("holiday without name: %w", ErrInvalidRule)
	}
	if r.Easter != nil {
		if *r.Easter < minEasterOffset || *r.Easter > maxEasterOffset {
			return fmt.Errorf("%s: easter offset %d: %w", r.Name, *r.Easter, ErrInvalidRule)
		}
	} else {
		leap := time.Date(2000, time.Month(r.Month), r.Day, 0, 0, 0, 0, time.UTC)
		if r.Month < 1 || r.Month > 12 || r.Day < 1 || leap.Month() != time.Month(r.Month) || leap.Day() != r.Day {
			return fmt.Errorf("%s: %d-%d: %w", r.Name, r.Month, r.Day, ErrInvalidRule)
		}
	}
	if _, err := rrule.NewRRule(r.option(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		return fmt.Errorf("%s: %w: %w", r.Name, ErrInvalidRule, err)
	}
	return nil
}

func (r Rule) option(start time.Time) rrule.ROption {
	opt := rrule.ROption{Freq: rrule.YEARLY, Dtstart: start}
	if r.Easter != nil {
		opt.Byeaster = []int{*r.Easter}
	} else {
		opt.Bymonth = []int{r.Month}
		opt.Bymonthday = []int{r.Day}
	}
	return opt
}
