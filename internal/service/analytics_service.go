package service

import (
	"context"
	"sort"
	"time"
	"unicode/utf16"

	"notes-console/internal/domain"
	"notes-console/internal/repository"
)

const bytesPerMB = 1048576

// AnalyticsReport agrupa las dos derivaciones sobre las notas del dueño de la sesion.
type AnalyticsReport struct {
	Histogram []domain.DailyCount `json:"histogram"`
	Storage   domain.StorageUsage `json:"storage"`
	NoteCount int                 `json:"note_count"`
}

type AnalyticsService struct {
	notes   repository.NoteRepository
	loc     *time.Location
	layout  string
	quotaMB float64
}

func NewAnalyticsService(notes repository.NoteRepository, loc *time.Location, layout string, quotaMB float64) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = "1/2/2006"
	}
	return &AnalyticsService{notes: notes, loc: loc, layout: layout, quotaMB: quotaMB}
}

func (s *AnalyticsService) Report(ctx context.Context, session *domain.Session) (AnalyticsReport, error) {
	if session == nil {
		return AnalyticsReport{}, ErrNoSession
	}
	notes, err := s.notes.ListByUserID(ctx, session.UserID())
	if err != nil {
		return AnalyticsReport{}, backendErr("list notes", err)
	}
	return AnalyticsReport{
		Histogram: Histogram(notes, s.loc, s.layout),
		Storage:   StorageEstimate(notes, s.quotaMB),
		NoteCount: len(notes),
	}, nil
}

// Histogram cuenta notas por fecha de calendario de created_at en loc.
// No rellena dias sin notas; la salida va ordenada por fecha.
func Histogram(notes []domain.Note, loc *time.Location, layout string) []domain.DailyCount {
	type bucket struct {
		day   time.Time
		count int
	}
	buckets := make(map[string]*bucket)
	for _, n := range notes {
		local := n.CreatedAt.In(loc)
		key := local.Format(layout)
		b, ok := buckets[key]
		if !ok {
			y, m, d := local.Date()
			b = &bucket{day: time.Date(y, m, d, 0, 0, 0, 0, loc)}
			buckets[key] = b
		}
		b.count++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return buckets[keys[i]].day.Before(buckets[keys[j]].day)
	})

	out := make([]domain.DailyCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.DailyCount{Date: k, Count: buckets[k].count})
	}
	return out
}

// StorageEstimate asume dos bytes por unidad UTF-16 del contenido.
func StorageEstimate(notes []domain.Note, quotaMB float64) domain.StorageUsage {
	var units int
	for _, n := range notes {
		units += utf16Len(n.Content)
	}
	used := float64(units*2) / bytesPerMB
	return domain.StorageUsage{
		UsedMB:  used,
		FreeMB:  quotaMB - used,
		TotalMB: quotaMB,
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
