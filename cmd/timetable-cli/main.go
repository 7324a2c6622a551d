package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/catalog"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

func main() {
	var (
		roomsPath    = flag.String("rooms", "", "Rooms CSV (name,capacity,kind,equipment)")
		sessionsPath = flag.String("sessions", "", "Sessions CSV (id,subject,kind,teacher,group,cohort,track,headcount,equipment,priority)")
		blockedPath  = flag.String("blocked", "", "Optional blocked slots CSV (teacher,day,start,room,reason)")
		delimiter    = flag.String("delim", ",", "CSV delimiter: comma, semicolon, tab or pipe")
		csvOut       = flag.String("out", "", "Write the timetable as CSV to this file")
		pdfOut       = flag.String("pdf", "", "Write the timetable as a PDF grid to this file")
		issueToken   = flag.String("issue-token", "", "Print an access token for this user id and exit")
		role         = flag.String("role", string(models.RoleAdmin), "Role of the issued token")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if *issueToken != "" {
		auth := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Expiration: cfg.JWT.Expiration}, logr)
		token, expiresAt, err := auth.IssueToken(*issueToken, models.UserRole(*role))
		if err != nil {
			logr.Fatal("issue token", zap.Error(err))
		}
		fmt.Println(token)
		logr.Info("token issued", zap.String("user", *issueToken), zap.Time("expires_at", expiresAt))
		return
	}

	if *roomsPath == "" || *sessionsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	delim, err := catalog.ParseDelimiter(*delimiter)
	if err != nil {
		logr.Fatal("invalid delimiter", zap.Error(err))
	}
	loader := catalog.NewLoader(delim)
	rooms, err := loader.RoomsFile(*roomsPath)
	if err != nil {
		logr.Fatal("load rooms", zap.Error(err))
	}
	demands, err := loader.SessionsFile(*sessionsPath)
	if err != nil {
		logr.Fatal("load sessions", zap.Error(err))
	}
	blocked, err := loader.BlockedSlotsFile(*blockedPath)
	if err != nil {
		logr.Fatal("load blocked slots", zap.Error(err))
	}

	validator := validation.New()
	calendar := service.DefaultSlotCalendar()
	engine := service.NewPlacementEngine(service.EngineConfig{
		Calendar: calendar,
		Rooms: service.RoomMatcherConfig{
			TutorialRoomCeiling: cfg.Scheduler.TutorialRoomCeiling,
			LabRoomCeiling:      cfg.Scheduler.LabRoomCeiling,
		},
	}, validator, logr)

	result, err := engine.Run(service.EngineInput{Demands: demands, Rooms: rooms, Blocked: blocked})
	if err != nil {
		logr.Fatal("generation failed", zap.Error(err))
	}

	renderer := service.NewExportService(nil, calendar, nil, nil, validator, logr, service.ExportServiceConfig{CSVDelimiter: delim})
	subtitle := fmt.Sprintf("%d sessions placed, %d unplaced", len(result.Placements), len(result.Unplaced))
	for format, path := range map[string]string{"csv": *csvOut, "pdf": *pdfOut} {
		if path == "" || len(result.Placements) == 0 {
			continue
		}
		body, err := renderer.Render(format, "Timetable", subtitle, result.Placements)
		if err != nil {
			logr.Fatal("render", zap.String("format", format), zap.Error(err))
		}
		if err := os.WriteFile(path, body, 0o644); err != nil {
			logr.Fatal("write output", zap.String("path", path), zap.Error(err))
		}
		logr.Info("timetable written", zap.String("format", format), zap.String("path", path))
	}

	printSummary(result)
}

type summary struct {
	Placed   int                     `json:"placed"`
	FastPath int                     `json:"fast_path"`
	Fallback int                     `json:"fallback"`
	PerDay   map[string]int          `json:"per_day"`
	PerWin   map[string]int          `json:"per_window"`
	Unplaced []models.UnplacedRecord `json:"unplaced"`
	Ignored  []models.BlockedSlot    `json:"ignored_blocked_slots,omitempty"`
	Busiest  []string                `json:"busiest_rooms"`
}

func printSummary(result *service.EngineResult) {
	rooms := make([]string, 0, len(result.Stats.RoomUsage))
	for room := range result.Stats.RoomUsage {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		a, b := result.Stats.RoomUsage[rooms[i]], result.Stats.RoomUsage[rooms[j]]
		if a != b {
			return a > b
		}
		return rooms[i] < rooms[j]
	})
	if len(rooms) > 5 {
		rooms = rooms[:5]
	}

	out := summary{
		Placed:   len(result.Placements),
		FastPath: result.Stats.FastPath,
		Fallback: result.Stats.Fallback,
		PerDay:   result.Stats.PerDay,
		PerWin:   result.Stats.PerWindow,
		Unplaced: result.Unplaced,
		Ignored:  result.IgnoredBlocked,
		Busiest:  rooms,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
