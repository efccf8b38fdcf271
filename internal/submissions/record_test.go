package submissions

import (
	"time"

	"github.com/wolfman30/riskdesk-demo/internal/demo"
)

func sampleRecord(id string) *Record {
	return &Record{
		Request: demo.Request{
			FullName:     "Marie Kouassi",
			Organization: "Banque X",
			Email:        "marie@banquex.ci",
			Standards:    []string{"iso27001"},
			TimeZone:     "Africa/Abidjan",
			Slot1:        demo.Slot{Date: "2025-06-10", Time: "14:00"},
			MeetingTool:  demo.MeetingTool("google_meet"),
			Language:     demo.Language("fr"),
			GDPRConsent:  true,
		},
		ID:           id,
		Status:       StatusPending,
		CreatedAt:    time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		ICSGenerated: true,
		EmailSent:    false,
	}
}
