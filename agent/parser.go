package agent

import (
	"regexp"
	"strings"
	"time"

	"github.com/streambinder/hymnal/query"
)

// DateLayout renders service dates, e.g. "2026년 10월 21일"
const DateLayout = "2006년 01월 02일"

// Service names a recurring worship service
type Service struct {
	Name    string // e.g. "수요"
	Weekday time.Weekday
}

var Services = []Service{
	{"수요", time.Wednesday},
	{"금요", time.Friday},
}

// Command is a parsed service order
type Command struct {
	Service     Service
	Before      []string // songs before the sermon, in order
	After       []string // songs after the sermon, in order
	BibleRange  string   // passage as displayed
	BibleQuery  string   // passage as searched
	SermonTitle string
	TargetDate  time.Time // zero when the service is unknown
}

// Empty reports whether there is no song to retrieve
func (command Command) Empty() bool {
	return len(command.Before) == 0 && len(command.After) == 0
}

// Date returns the formatted target date, or an empty string
func (command Command) Date() string {
	if command.TargetDate.IsZero() {
		return ""
	}
	return command.TargetDate.Format(DateLayout)
}

var (
	separator    = `[:\-\s]+`
	colon        = regexp.MustCompile(`[:：]`)
	beforeLine   = regexp.MustCompile(`예배\s*전.*찬[송양]`)
	afterLine    = regexp.MustCompile(`(설교|예배)\s*후.*찬[송양]`)
	rangeLine    = regexp.MustCompile(`성경.*본문`)
	searchLine   = regexp.MustCompile(`본문.*검색`)
	passageLine  = regexp.MustCompile(`본문`)
	titleLine    = regexp.MustCompile(`제목`)
	rangeValue   = regexp.MustCompile(`본문` + separator + `(.*)`)
	searchValue  = regexp.MustCompile(`검색` + separator + `(.*)`)
	titleValue   = regexp.MustCompile(`제목` + separator + `(.*)`)
	songPrefixes = []string{"찬양 :", "찬양:", "찬송 :", "찬송:", "전 ", "후 "}
)

// Parser reads service orders such as:
//
//	수요기도회
//	예배전 찬양 : 434장, 실로암
//	성경 본문 : 요한복음 13장 15절
//	본문 검색 : 요 13:15
//	제목 : "예수 닮아가기"
//	설교후 찬송 : 289장
type Parser struct {
	Unit    string
	Default Service // used when the text names no service
	Now     func() time.Time
}

func NewParser(unit, defaultService string) Parser {
	service, _ := ServiceByName(defaultService)
	return Parser{Unit: unit, Default: service, Now: time.Now}
}

// ServiceByName looks a service up by (a prefix of) its name
func ServiceByName(name string) (Service, bool) {
	for _, service := range Services {
		if len(name) > 0 && strings.Contains(name, service.Name) {
			return service, true
		}
	}
	return Service{}, false
}

func (parser Parser) Parse(text string) Command {
	var (
		command Command
		known   bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if service, ok := ServiceByName(line); ok && !strings.Contains(line, ":") {
			command.Service, known = service, true
			continue
		}

		switch {
		case beforeLine.MatchString(line):
			command.Before = parser.songs(line, beforeLine)
		case afterLine.MatchString(line):
			command.After = parser.songs(line, afterLine)
		case searchLine.MatchString(line):
			command.BibleQuery = value(searchValue, line)
		case rangeLine.MatchString(line):
			command.BibleRange = value(rangeValue, line)
		case passageLine.MatchString(line):
			if passage := value(rangeValue, line); len(command.BibleRange) == 0 {
				command.BibleRange = passage
				command.BibleQuery = passage
			}
		case titleLine.MatchString(line):
			command.SermonTitle = strings.Trim(value(titleValue, line), `"'`)
		}
	}

	if len(command.BibleQuery) == 0 {
		command.BibleQuery = command.BibleRange
	}
	if !known {
		command.Service = parser.Default
	}
	if command.Service.Name != "" {
		now := time.Now
		if parser.Now != nil {
			now = parser.Now
		}
		command.TargetDate = NextDate(now(), command.Service.Weekday)
	}
	return command
}

func value(pattern *regexp.Regexp, line string) string {
	if match := pattern.FindStringSubmatch(line); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// songs splits the comma separated list following the line header,
// "28장" is reduced to "28" while titles are kept as typed
func (parser Parser) songs(line string, header *regexp.Regexp) []string {
	content := header.ReplaceAllString(line, "")
	if loc := colon.FindStringIndex(line); loc != nil {
		content = line[loc[1]:]
	}

	var songs []string
	for _, item := range strings.Split(content, ",") {
		item = Clean(item)
		if len(item) == 0 {
			continue
		}
		if n, ok := query.Number(item); ok && query.IsNumeric(item, parser.Unit) {
			item = n
		}
		songs = append(songs, item)
	}
	return songs
}

// Clean strips the leftovers of a list header from a song
func Clean(song string) string {
	song = strings.TrimSpace(song)
	for _, prefix := range songPrefixes {
		song = strings.TrimSpace(strings.TrimPrefix(song, prefix))
	}
	return song
}

// NextDate returns the first weekday strictly after now
func NextDate(now time.Time, weekday time.Weekday) time.Time {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	year, month, day := now.Date()
	return time.Date(year, month, day+days, 0, 0, 0, 0, now.Location())
}
