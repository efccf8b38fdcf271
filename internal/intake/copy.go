package intake

import (
	"fmt"
	"strings"

	"github.com/wolfman30/riskdesk-demo/internal/demo"
)

type messages struct {
	accepted   string
	invalid    string
	spam       string
	server     string
	tooLarge   string
	eventTitle string
	intro      string
	alternates string
	noContext  string
}

var copyByLanguage = map[demo.Language]messages{
	demo.LanguageFrench: {
		accepted:   "Merci ! Votre demande de démo a bien été reçue. Notre équipe vous recontactera sous %s.",
		invalid:    "Certains champs sont invalides. Merci de les corriger.",
		spam:       "Votre demande n'a pas pu être traitée.",
		server:     "Une erreur est survenue. Merci de réessayer plus tard.",
		tooLarge:   "La requête est trop volumineuse.",
		eventTitle: "Démo %s - %s",
		intro:      "Démonstration de %s pour %s (%s).",
		alternates: "Créneaux alternatifs",
		noContext:  "Aucun contexte fourni.",
	},
	demo.LanguageEnglish: {
		accepted:   "Thank you! Your demo request has been received. Our team will get back to you within %s.",
		invalid:    "Some fields are invalid. Please correct them.",
		spam:       "Your request could not be processed.",
		server:     "Something went wrong. Please try again later.",
		tooLarge:   "The request body is too large.",
		eventTitle: "%s demo - %s",
		intro:      "%s demonstration for %s (%s).",
		alternates: "Alternative slots",
		noContext:  "No context provided.",
	},
}

func copyFor(lang demo.Language) messages {
	if m, ok := copyByLanguage[lang]; ok {
		return m
	}
	return copyByLanguage[demo.LanguageFrench]
}

// eventDescription is the plain-text body shared by the invite and the deep links.
func eventDescription(m messages, product string, req *demo.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, m.intro, product, req.FullName, req.Organization)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s <%s>\n", req.FullName, req.Email)
	if req.Phone != "" {
		b.WriteString(req.Phone + "\n")
	}
	b.WriteString(req.MeetingTool.Label(req.Lang()) + "\n")
	b.WriteString(req.TimeZone + "\n")

	var alternates []string
	for _, slot := range []*demo.Slot{req.Slot2, req.Slot3} {
		if slot != nil && !slot.IsZero() {
			alternates = append(alternates, slot.Date+" "+slot.Time)
		}
	}
	if len(alternates) > 0 {
		fmt.Fprintf(&b, "%s: %s\n", m.alternates, strings.Join(alternates, ", "))
	}

	b.WriteString("\n")
	if req.Context != "" {
		b.WriteString(req.Context)
	} else {
		b.WriteString(m.noContext)
	}
	return b.String()
}
