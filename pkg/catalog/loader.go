package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/models"
)

// equipmentSeparator splits equipment lists inside a single CSV cell.
const equipmentSeparator = "|"

// RoomRecord is one line of a rooms CSV file.
type RoomRecord struct {
	Name      string `csv:"name"`
	Capacity  int    `csv:"capacity"`
	Kind      string `csv:"kind"`
	Equipment string `csv:"equipment"`
}

// SessionRecord is one line of a sessions CSV file.
type SessionRecord struct {
	ID        string `csv:"id"`
	Subject   string `csv:"subject"`
	Kind      string `csv:"kind"`
	Teacher   string `csv:"teacher"`
	Group     string `csv:"group"`
	Cohort    string `csv:"cohort"`
	Track     string `csv:"track"`
	Headcount int    `csv:"headcount"`
	Equipment string `csv:"equipment"`
	Priority  string `csv:"priority"`
}

// BlockedSlotRecord is one line of a blocked slots CSV file.
type BlockedSlotRecord struct {
	Teacher string `csv:"teacher"`
	Day     string `csv:"day"`
	Start   string `csv:"start"`
	Room    string `csv:"room"`
	Reason  string `csv:"reason"`
}

// Loader parses catalog CSV files with a fixed delimiter.
type Loader struct {
	delim rune
}

// NewLoader builds a loader. A zero delimiter means comma.
func NewLoader(delim rune) *Loader {
	if delim == 0 {
		delim = ','
	}
	return &Loader{delim: delim}
}

// ParseDelimiter maps a user supplied delimiter name to its rune.
func ParseDelimiter(raw string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\\t", "\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q", raw)
}

func (l *Loader) reader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = l.delim
	r.TrimLeadingSpace = true
	return r
}

// Rooms parses a rooms CSV stream.
func (l *Loader) Rooms(in io.Reader) ([]models.Room, error) {
	var records []RoomRecord
	if err := gocsv.UnmarshalCSV(l.reader(in), &records); err != nil {
		return nil, fmt.Errorf("parse rooms csv: %w", err)
	}
	rooms := make([]models.Room, 0, len(records))
	for _, rec := range records {
		rooms = append(rooms, models.Room{
			Name:      strings.TrimSpace(rec.Name),
			Capacity:  rec.Capacity,
			Kind:      models.RoomKind(strings.ToUpper(strings.TrimSpace(rec.Kind))),
			Equipment: splitEquipment(rec.Equipment),
		})
	}
	return rooms, nil
}

// Sessions parses a sessions CSV stream. An empty priority cell takes the
// kind's default rank.
func (l *Loader) Sessions(in io.Reader) ([]models.SessionDemand, error) {
	var records []SessionRecord
	if err := gocsv.UnmarshalCSV(l.reader(in), &records); err != nil {
		return nil, fmt.Errorf("parse sessions csv: %w", err)
	}
	demands := make([]models.SessionDemand, 0, len(records))
	for i, rec := range records {
		kind := models.SessionKind(strings.ToUpper(strings.TrimSpace(rec.Kind)))
		priority := kind.DefaultPriority()
		if raw := strings.TrimSpace(rec.Priority); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("sessions csv line %d: invalid priority %q", i+2, raw)
			}
			priority = parsed
		}
		demands = append(demands, models.SessionDemand{
			ID:        strings.TrimSpace(rec.ID),
			Subject:   strings.TrimSpace(rec.Subject),
			Kind:      kind,
			Teacher:   strings.TrimSpace(rec.Teacher),
			Group:     strings.TrimSpace(rec.Group),
			Cohort:    strings.TrimSpace(rec.Cohort),
			Track:     strings.TrimSpace(rec.Track),
			Headcount: rec.Headcount,
			Equipment: splitEquipment(rec.Equipment),
			Priority:  priority,
		})
	}
	return demands, nil
}

// BlockedSlots parses a blocked slots CSV stream.
func (l *Loader) BlockedSlots(in io.Reader) ([]models.BlockedSlot, error) {
	var records []BlockedSlotRecord
	if err := gocsv.UnmarshalCSV(l.reader(in), &records); err != nil {
		return nil, fmt.Errorf("parse blocked slots csv: %w", err)
	}
	slots := make([]models.BlockedSlot, 0, len(records))
	for i, rec := range records {
		day, err := models.ParseWeekday(rec.Day)
		if err != nil {
			return nil, fmt.Errorf("blocked slots csv line %d: %w", i+2, err)
		}
		slots = append(slots, models.BlockedSlot{
			Teacher: strings.TrimSpace(rec.Teacher),
			Day:     day,
			Start:   strings.TrimSpace(rec.Start),
			Room:    strings.TrimSpace(rec.Room),
			Reason:  strings.TrimSpace(rec.Reason),
		})
	}
	return slots, nil
}

// RoomsFile opens path and parses it as a rooms catalog.
func (l *Loader) RoomsFile(path string) ([]models.Room, error) {
	var rooms []models.Room
	err := withFile(path, func(f io.Reader) (err error) {
		rooms, err = l.Rooms(f)
		return err
	})
	return rooms, err
}

// SessionsFile opens path and parses it as a sessions catalog.
func (l *Loader) SessionsFile(path string) ([]models.SessionDemand, error) {
	var demands []models.SessionDemand
	err := withFile(path, func(f io.Reader) (err error) {
		demands, err = l.Sessions(f)
		return err
	})
	return demands, err
}

// BlockedSlotsFile opens path and parses it as a blocked slots list. An empty
// path yields no slots.
func (l *Loader) BlockedSlotsFile(path string) ([]models.BlockedSlot, error) {
	if path == "" {
		return nil, nil
	}
	var slots []models.BlockedSlot
	err := withFile(path, func(f io.Reader) (err error) {
		slots, err = l.BlockedSlots(f)
		return err
	})
	return slots, err
}

func withFile(path string, fn func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck
	return fn(file)
}

func splitEquipment(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, equipmentSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
